package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

type credential struct {
	Login          string `json:"login"`
	Token          string `json:"token"`
	OrganizationID string `json:"organization_id"`
	AccountID      string `json:"account_id"`
}

type session struct {
	Token string `json:"token"`
	User  struct {
		Login         string `json:"login"`
		Organizations []struct {
			ID string `json:"id"`
		} `json:"organizations"`
	} `json:"user"`
}

func main() {
	base := flag.String("addr", envOr("CONTROL_SMOKE_ADDR", "http://localhost:8080"), "API base URL")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client := &http.Client{Timeout: 5 * time.Second}

	taxID := fmt.Sprintf("%011d", rand.Int63n(99_999_999_999))
	var cred credential
	if err := call(ctx, client, http.MethodPost, *base+"/v1/first-access", "", map[string]string{
		"tax_id": taxID,
		"name":   "Smoke " + taxID,
		"email":  "smoke+" + taxID + "@digytal.com.br",
	}, http.StatusCreated, &cred); err != nil {
		log.Fatalf("first access: %v", err)
	}

	const password = "smoke-pass"
	var defined session
	if err := call(ctx, client, http.MethodPost, *base+"/v1/auth/password/confirm", "", map[string]string{
		"token":        cred.Token,
		"new_password": password,
		"confirmation": password,
	}, http.StatusOK, &defined); err != nil {
		log.Fatalf("define password: %v", err)
	}

	var sess session
	if err := call(ctx, client, http.MethodPost, *base+"/v1/auth/login", "", map[string]string{
		"login":    cred.Login,
		"password": password,
	}, http.StatusOK, &sess); err != nil {
		log.Fatalf("login: %v", err)
	}
	if len(sess.User.Organizations) != 1 || sess.User.Organizations[0].ID != cred.OrganizationID {
		log.Fatalf("unexpected organizations: %+v", sess.User.Organizations)
	}

	var methods []json.RawMessage
	if err := call(ctx, client, http.MethodGet, *base+"/v1/accounts/"+cred.AccountID+"/payment-methods", sess.Token, nil, http.StatusOK, &methods); err != nil {
		log.Fatalf("payment methods: %v", err)
	}
	if len(methods) != 1 {
		log.Fatalf("expected one default payment method, got %d", len(methods))
	}

	fmt.Printf("smoke ok: org=%s login=%s account=%s\n", cred.OrganizationID, cred.Login, cred.AccountID)
}

func call(ctx context.Context, client *http.Client, method, url, token string, body any, want int, out any) error {
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	if resp.StatusCode != want {
		return fmt.Errorf("%s %s: status %d code=%s message=%s", method, url, resp.StatusCode, env.Code, env.Message)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

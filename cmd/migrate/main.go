package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"digytal.com/control/internal/migrate"
)

func main() {
	log.SetFlags(0)
	dsn := flag.String("dsn", os.Getenv("CONTROL_PG_DSN"), "PostgreSQL DSN")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or CONTROL_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|seed|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	mgr := migrate.NewManager(db, migrate.Files)

	var names []string
	switch flag.Arg(0) {
	case "up":
		names, err = mgr.Up(ctx)
	case "down":
		var name string
		name, err = mgr.Down(ctx)
		if name != "" {
			names = []string{name}
		}
	case "seed":
		names, err = mgr.Seed(ctx)
	case "status":
		names, err = mgr.Status(ctx)
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rentora/chatd/internal/auth"
)

func main() {
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "JWT signing secret")
	userID := flag.Int64("user", 0, "User id to mint a token for")
	name := flag.String("name", "", "Display name claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	if *secret == "" || *userID <= 0 {
		fmt.Fprintln(os.Stderr, "Usage: mktoken -secret <jwt-secret> -user <id> [-name <name>] [-ttl <duration>]")
		fmt.Fprintln(os.Stderr, "  JWT_SECRET env var is used when -secret is not given")
		os.Exit(1)
	}

	token, err := auth.Mint(*secret, *userID, *name, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}

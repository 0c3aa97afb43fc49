// Command hash-generator prints bcrypt hashes for auth.admin_password_hash.
//
// Usage: hash-generator <password> [password...]
package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/Beyllin/link/internal/service/auth"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <password> [password...]\n", os.Args[0])
		os.Exit(1)
	}

	failed := false
	for _, password := range os.Args[1:] {
		hash, err := auth.HashPassword(password, bcrypt.DefaultCost)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating hash: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("LINKBOT_AUTH_ADMIN_PASSWORD_HASH=%s\n", hash)
	}

	if failed {
		os.Exit(1)
	}
}

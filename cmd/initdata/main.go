// Command initdata prints a signed Telegram initData string so the API can be
// called locally without opening the Mini App:
//
//	curl -H "X-Telegram-Init-Data: $(go run ./cmd/initdata -user-id 42)" localhost:8080/api/me
//
// The token defaults to TELEGRAM_BOT_TOKEN (or .env), the same one the
// server verifies with.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/sakif/alert-dashboard/internal/auth"
)

type user struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func main() {
	_ = godotenv.Load()

	token := flag.String("token", os.Getenv("TELEGRAM_BOT_TOKEN"), "bot token used to sign")
	userID := flag.Int64("user-id", 0, "Telegram user id (required, > 0)")
	username := flag.String("username", "", "optional username")
	firstName := flag.String("first-name", "", "optional first name")
	flag.Parse()

	if *token == "" || *userID <= 0 {
		flag.Usage()
		os.Exit(2)
	}

	rawUser, err := json.Marshal(user{ID: *userID, Username: *username, FirstName: *firstName})
	if err != nil {
		slog.Error("encoding user", slog.String("error", err.Error()))
		os.Exit(1)
	}

	values := url.Values{}
	values.Set("user", string(rawUser))
	values.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))

	fmt.Println(auth.Sign(*token, values))
}

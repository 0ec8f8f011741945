// Command testhelper drives an OrgVault deployment from scripts and
// cross-language conformance harnesses. Each command reads JSON-friendly
// arguments, performs one SDK operation and prints a JSON result.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	orgvault "github.com/orgvault/client-go"
)

func main() {
	if len(os.Args) < 2 {
		fatal("usage: testhelper <command> [args]")
	}

	// Load local overrides if present; the environment wins.
	godotenv.Load()

	baseURL := os.Getenv("ORGVAULT_URL")
	if baseURL == "" {
		fatal("ORGVAULT_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := orgvault.New(baseURL)
	if err != nil {
		fatal("create client: %v", err)
	}
	defer client.Close()

	switch os.Args[1] {
	case "register":
		register(ctx, client)
	case "login":
		login(ctx, client)
	case "create-item":
		createItem(ctx, client)
	case "read-item":
		if len(os.Args) < 3 {
			fatal("usage: testhelper read-item <item-id>")
		}
		readItem(ctx, client, os.Args[2])
	case "pending":
		pending(ctx, client)
	case "ceremony":
		ceremony(ctx, client)
	default:
		fatal("unknown command: %s", os.Args[1])
	}
}

func creds() (email, password string) {
	email = os.Getenv("ORGVAULT_EMAIL")
	password = os.Getenv("ORGVAULT_PASSWORD")
	if email == "" || password == "" {
		fatal("ORGVAULT_EMAIL and ORGVAULT_PASSWORD are required")
	}
	return email, password
}

func register(ctx context.Context, client *orgvault.Client) {
	email, password := creds()
	enroll, err := client.Register(ctx, orgvault.Registration{
		Email:    email,
		FullName: os.Getenv("ORGVAULT_FULL_NAME"),
		Password: password,
		OrgName:  os.Getenv("ORGVAULT_ORG_NAME"),
	})
	if err != nil {
		fatal("register: %v", err)
	}
	emit(map[string]interface{}{
		"user_id":         enroll.User.ID,
		"org_id":          enroll.User.ActiveOrgID,
		"recovery_key":    enroll.RecoveryKey,
		"org_key_pending": enroll.OrgKeyPending,
	})
}

func mustLogin(ctx context.Context, client *orgvault.Client) (*orgvault.User, string) {
	email, password := creds()
	user, err := client.Login(ctx, email, password)
	if err != nil {
		fatal("login: %v", err)
	}
	return user, user.ActiveOrgID
}

func login(ctx context.Context, client *orgvault.Client) {
	user, orgID := mustLogin(ctx, client)
	emit(map[string]interface{}{
		"user_id": user.ID,
		"org_id":  orgID,
		"has_key": client.Session().HasOrgKey(orgID),
	})
}

func createItem(ctx context.Context, client *orgvault.Client) {
	_, orgID := mustLogin(ctx, client)

	record, err := client.CreateItem(ctx, orgID, &orgvault.RecordDraft{
		Name:  os.Getenv("ORGVAULT_ITEM_NAME"),
		Notes: os.Getenv("ORGVAULT_ITEM_NOTES"),
	})
	if err != nil {
		fatal("create item: %v", err)
	}
	emit(map[string]interface{}{
		"item_id":            record.ID,
		"encryption_version": record.EncryptionVersion,
	})
}

func readItem(ctx context.Context, client *orgvault.Client, itemID string) {
	mustLogin(ctx, client)

	record, err := client.Item(ctx, itemID)
	if err != nil {
		fatal("read item: %v", err)
	}

	out := map[string]interface{}{
		"item_id":            record.ID,
		"encryption_version": record.EncryptionVersion,
	}
	if name, ok := record.Name.Value(); ok {
		out["name"] = name
	} else {
		out["name_unreadable"] = string(record.Name.Reason())
	}
	if notes, ok := record.Notes.Value(); ok {
		out["notes"] = notes
	} else {
		out["notes_unreadable"] = string(record.Notes.Reason())
	}
	emit(out)
}

func pending(ctx context.Context, client *orgvault.Client) {
	_, orgID := mustLogin(ctx, client)

	members, err := client.PendingMembers(ctx, orgID)
	if err != nil {
		fatal("pending members: %v", err)
	}
	emit(members)
}

func ceremony(ctx context.Context, client *orgvault.Client) {
	_, orgID := mustLogin(ctx, client)

	result, err := client.RunKeyCeremony(ctx, orgID)
	if err != nil {
		fatal("key ceremony: %v", err)
	}

	failed := make([]string, 0, len(result.Failed))
	for _, f := range result.Failed {
		failed = append(failed, f.Error())
	}
	emit(map[string]interface{}{
		"granted": result.Granted,
		"failed":  failed,
	})
}

func emit(v interface{}) {
	if err := json.NewEncoder(os.Stdout).Encode(v); err != nil {
		fatal("encode output: %v", err)
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

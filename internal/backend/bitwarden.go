package backend

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"
)

// Bitwarden adapts the Bitwarden `bw` CLI.
type Bitwarden struct {
	run runner
}

// NewBitwarden builds the adapter. timeout <= 0 uses the default.
func NewBitwarden(timeout time.Duration) *Bitwarden {
	return &Bitwarden{run: runner{command: "bw", timeout: timeout}}
}

func (b *Bitwarden) DisplayName() string { return "Bitwarden" }

func (b *Bitwarden) IsAvailable() bool { return b.run.lookPath() }

// bwStatus is the subset of `bw status` output this adapter reads.
type bwStatus struct {
	Status string `json:"status"` // "unauthenticated", "locked", "unlocked"
}

func (b *Bitwarden) status() string {
	out, err := b.run.run(context.Background(), "", "status")
	if err != nil {
		return "unauthenticated"
	}
	var st bwStatus
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		return "unauthenticated"
	}
	return st.Status
}

func (b *Bitwarden) IsAuthenticated() bool {
	if os.Getenv("BW_SESSION") != "" {
		return true
	}
	return b.status() == "unlocked"
}

// Authenticate unlocks the vault (or logs in first when needed) and exports
// the session key for subsequent calls in this process.
func (b *Bitwarden) Authenticate(ctx context.Context) error {
	auth := runner{command: b.run.command, timeout: interactiveTimeout}
	if b.status() == "unauthenticated" {
		if _, err := auth.run(ctx, "", "login"); err != nil {
			return err
		}
	}
	session, err := auth.run(ctx, "", "unlock", "--raw")
	if err != nil {
		return err
	}
	return os.Setenv("BW_SESSION", session)
}

// GetSecret fetches an item's password. The mapped path is a Bitwarden item
// id or name; without one the placeholder name addresses the item.
func (b *Bitwarden) GetSecret(ctx context.Context, ref SecretReference) (string, error) {
	item := ref.Path
	if item == "" {
		item = ref.Name
	}
	out, err := b.run.run(ctx, "", "get", "password", item)
	if err != nil {
		if strings.Contains(err.Error(), "Not found") {
			return "", nil
		}
		return "", err
	}
	return out, nil
}

func (b *Bitwarden) Lock() {
	_, _ = b.run.run(context.Background(), "", "lock")
	_ = os.Unsetenv("BW_SESSION")
}

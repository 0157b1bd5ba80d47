package peer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/songledger/songledger/foundation/blockchain/database"
	"github.com/songledger/songledger/foundation/blockchain/hashutil"
)

func TestComposeRegisterMissingFileUsesSentinel(t *testing.T) {
	tx := ComposeRegister(t.TempDir(), "alice", "welcome_to_new_york", "sig")

	if tx.Kind != database.KindRegister {
		t.Fatalf("Kind = %v, want KindRegister", tx.Kind)
	}
	if tx.SongHash != hashutil.FileNotFound {
		t.Fatalf("SongHash = %q, want sentinel", tx.SongHash)
	}
}

func TestComposeRegisterHashesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "welcome_to_new_york.mp3")
	if err := os.WriteFile(path, []byte("fake audio bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	tx := ComposeRegister(dir, "alice", "welcome_to_new_york", "sig")
	want := hashutil.HashFile(path)
	if tx.SongHash != want {
		t.Fatalf("SongHash = %q, want %q", tx.SongHash, want)
	}
}

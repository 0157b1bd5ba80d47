package peer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/songledger/songledger/foundation/blockchain/database"
)

// Journal writes the two append-only, write-only log files the original
// peer process keeps under its log/ directory: a running peer-list log,
// appended to after every PEER_LIST: message, and a final blockchain
// log, written once when the peer leaves the network. Neither file is
// ever read back; this is an external interface for operators, not a
// restart-recovery mechanism.
type Journal struct {
	mu       sync.Mutex
	dir      string
	selfAddr string
}

// NewJournal creates dir if it doesn't already exist and returns a
// Journal that writes selfAddr's two log files there.
func NewJournal(dir, selfAddr string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Journal{dir: dir, selfAddr: selfAddr}, nil
}

func (j *Journal) peerListPath() string {
	return filepath.Join(j.dir, fmt.Sprintf("%s peer_list_log.txt", j.selfAddr))
}

func (j *Journal) blockchainPath() string {
	return filepath.Join(j.dir, fmt.Sprintf("%s blockchain_log.txt", j.selfAddr))
}

// AppendPeerList records the current peer set, matching the original's
// self.log(peer_or_block='peer', to_file=True) block format.
func (j *Journal) AppendPeerList(peers []string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.peerListPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "=========== %s log ===========\n", j.selfAddr)
	b.WriteString("Peers\n")
	fmt.Fprintf(&b, "%v\n", peers)
	b.WriteString("========================================\n")

	_, err = f.WriteString(b.String())
	return err
}

// WriteBlockchain overwrites the final blockchain log with every block
// in chain, called once on leave/shutdown.
func (j *Journal) WriteBlockchain(chain []database.Block) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.blockchainPath(), os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "=========== %s Final Blockchain ===========\n", j.selfAddr)
	for _, blk := range chain {
		data, err := blk.Serialize()
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "\n\n%s", data)
	}
	b.WriteString("\n\n=======================================================\n")

	_, err = f.WriteString(b.String())
	return err
}

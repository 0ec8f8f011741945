package orgvault

import (
	"context"
	"sync"
	"time"

	"github.com/orgvault/client-go/internal/api"
)

// migrationJob is one item scheduled for a 1→2 re-encryption.
type migrationJob struct {
	itemID string
	orgID  string
}

// migrator upgrades legacy records to zero-knowledge encryption in the
// background. Reads schedule the work; the worker re-fetches, encrypts
// and writes back with the version bumped. Every step is idempotent, so
// a crash mid-migration just means the next read schedules it again.
type migrator struct {
	client *Client

	queue chan migrationJob
	done  chan struct{}
	wg    sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}

	maxAttempts int
	baseDelay   time.Duration
	onError     func(itemID string, err error)
}

func newMigrator(c *Client, cfg *clientConfig) *migrator {
	return &migrator{
		client:      c,
		queue:       make(chan migrationJob, cfg.migrationQueueSize),
		done:        make(chan struct{}),
		inflight:    make(map[string]struct{}),
		maxAttempts: cfg.migrationMaxAttempts,
		baseDelay:   cfg.migrationBaseDelay,
		onError:     cfg.onMigrationError,
	}
}

func (m *migrator) start() {
	m.wg.Add(1)
	go m.run()
}

// stop drains nothing: queued jobs are abandoned, which is safe because
// the records stay readable at version 1 and re-enqueue on a later read.
func (m *migrator) stop() {
	close(m.done)
	m.wg.Wait()
}

// maybeEnqueue schedules a migration for a legacy item if the session
// holds its org key. Never blocks: when the queue is full or the item is
// already in flight the read proceeds and a later read retries.
func (m *migrator) maybeEnqueue(item *api.Item) {
	if item.EncryptionVersion != api.EncryptionVersionLegacy {
		return
	}
	if !m.client.session.HasOrgKey(item.OrgID) {
		return
	}

	m.mu.Lock()
	if _, busy := m.inflight[item.ID]; busy {
		m.mu.Unlock()
		return
	}
	m.inflight[item.ID] = struct{}{}
	m.mu.Unlock()

	select {
	case m.queue <- migrationJob{itemID: item.ID, orgID: item.OrgID}:
	default:
		m.release(item.ID)
	}
}

func (m *migrator) release(itemID string) {
	m.mu.Lock()
	delete(m.inflight, itemID)
	m.mu.Unlock()
}

func (m *migrator) run() {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case job := <-m.queue:
			m.process(job)
			m.release(job.itemID)
		}
	}
}

// process retries one migration with exponential backoff, then reports
// the final failure to the error handler. A dropped item is not lost:
// it stays at version 1 and migrates on a later read.
func (m *migrator) process(job migrationJob) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-m.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	var err error
	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-m.done:
				return
			case <-time.After(m.baseDelay << (attempt - 1)):
			}
		}
		if err = m.migrate(ctx, job); err == nil {
			return
		}
	}

	if m.onError != nil {
		m.onError(job.itemID, &MigrationError{ItemID: job.itemID, Attempts: m.maxAttempts, Err: err})
	}
}

// migrate re-encrypts one item at version 2. The item is re-fetched
// first so a migration that already happened (another client, another
// read) becomes a no-op instead of a double write.
func (m *migrator) migrate(ctx context.Context, job migrationJob) error {
	item, err := m.client.apiClient.GetItem(ctx, job.itemID)
	if err != nil {
		return wrapError(err)
	}
	if item.EncryptionVersion != api.EncryptionVersionLegacy {
		return nil
	}

	key, ok := m.client.session.orgKey(item.OrgID)
	if !ok {
		// Key dropped since enqueue (logout). Leave the item alone.
		return nil
	}

	update, err := encryptLegacyItem(key, item)
	if err != nil {
		return err
	}
	if _, err := m.client.apiClient.UpdateItem(ctx, job.itemID, update); err != nil {
		return wrapError(err)
	}
	return nil
}

// encryptLegacyItem converts a version 1 item into its version 2 wire
// form, encrypting every plaintext value under the org key.
func encryptLegacyItem(key []byte, item *api.Item) (*api.ItemUpdate, error) {
	draft := &RecordDraft{
		Name:       item.Name,
		Notes:      item.Notes,
		CategoryID: item.CategoryID,
		Fields:     make([]DraftField, len(item.Fields)),
	}
	for i, f := range item.Fields {
		draft.Fields[i] = DraftField{Key: f.Key, Label: f.Label, Value: f.Value}
	}
	return encryptDraftWithKey(key, draft)
}

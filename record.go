package orgvault

import (
	"context"
	"errors"
	"sync"

	"github.com/orgvault/client-go/internal/api"
	"github.com/orgvault/client-go/internal/crypto"
)

// Encryption version discriminators, re-exported from the API layer.
const (
	// EncryptionVersionLegacy marks content this subsystem treats as plaintext.
	EncryptionVersionLegacy = api.EncryptionVersionLegacy
	// EncryptionVersionZeroKnowledge marks content encrypted under the org key.
	EncryptionVersionZeroKnowledge = api.EncryptionVersionZeroKnowledge
)

// UndecryptableReason explains why a field could not be decrypted.
type UndecryptableReason string

const (
	// ReasonKeyUnavailable: the session holds no org key for the record's
	// org (pending member or logged-out session).
	ReasonKeyUnavailable UndecryptableReason = "key_unavailable"
	// ReasonAuthenticationFailed: the ciphertext failed AEAD
	// authentication under the held org key.
	ReasonAuthenticationFailed UndecryptableReason = "authentication_failed"
	// ReasonMalformed: the stored value is not valid transport ciphertext.
	ReasonMalformed UndecryptableReason = "malformed_ciphertext"
)

// FieldResult is the outcome of decrypting one value. Callers make a
// deliberate rendering choice for undecryptable values instead of
// silently receiving raw ciphertext.
type FieldResult struct {
	plaintext string
	reason    UndecryptableReason
	raw       string
}

func decryptedField(value string) FieldResult {
	return FieldResult{plaintext: value}
}

func undecryptableField(raw string, reason UndecryptableReason) FieldResult {
	return FieldResult{raw: raw, reason: reason}
}

// Value returns the plaintext and true when decryption succeeded.
func (r FieldResult) Value() (string, bool) {
	return r.plaintext, r.reason == ""
}

// Reason returns why decryption failed, or "" on success.
func (r FieldResult) Reason() UndecryptableReason {
	return r.reason
}

// Raw returns the stored ciphertext of an undecryptable value.
func (r FieldResult) Raw() string {
	return r.raw
}

// RecordField is one decrypted field of a record.
type RecordField struct {
	Key   string
	Label string
	Value FieldResult
}

// Record is the decrypted view of an item.
type Record struct {
	ID         string
	OrgID      string
	CategoryID string
	Name       FieldResult
	Notes      FieldResult
	Fields     []RecordField
	// EncryptionVersion is the version the record was read at.
	EncryptionVersion int
}

// DraftField is one field of a record draft.
type DraftField struct {
	Key   string
	Label string
	Value string
}

// RecordDraft is the writable plaintext form of a record.
type RecordDraft struct {
	Name       string
	Notes      string
	CategoryID string
	Fields     []DraftField
}

// Item fetches and decrypts one record. Version 1 content passes
// through untouched; version 2 content decrypts under the org key, with
// per-field results. Fetching a v1 record while the org key is held
// schedules a background migration to version 2.
func (c *Client) Item(ctx context.Context, itemID string) (*Record, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	raw, err := c.apiClient.GetItem(ctx, itemID)
	if err != nil {
		return nil, wrapError(err)
	}

	record := c.decryptItem(raw)
	c.migrator.maybeEnqueue(raw)
	return record, nil
}

// Items fetches and decrypts the active org's records.
func (c *Client) Items(ctx context.Context) ([]*Record, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	rawItems, err := c.apiClient.ListItems(ctx)
	if err != nil {
		return nil, wrapError(err)
	}

	records := make([]*Record, len(rawItems))
	for i := range rawItems {
		records[i] = c.decryptItem(&rawItems[i])
		c.migrator.maybeEnqueue(&rawItems[i])
	}
	return records, nil
}

// CreateItem encrypts a draft and creates the record. With the org key
// held the record is written at version 2; otherwise it falls back to
// the legacy plaintext path so key-less sessions keep functioning.
func (c *Client) CreateItem(ctx context.Context, orgID string, draft *RecordDraft) (*Record, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	update, err := c.encryptDraft(orgID, draft)
	if err != nil {
		return nil, err
	}
	raw, err := c.apiClient.CreateItem(ctx, update)
	if err != nil {
		return nil, wrapError(err)
	}
	return c.decryptItem(raw), nil
}

// UpdateItem encrypts a draft and writes it over an existing record.
// Writes never downgrade: a session holding the org key always writes
// version 2.
func (c *Client) UpdateItem(ctx context.Context, itemID, orgID string, draft *RecordDraft) (*Record, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	update, err := c.encryptDraft(orgID, draft)
	if err != nil {
		return nil, err
	}
	raw, err := c.apiClient.UpdateItem(ctx, itemID, update)
	if err != nil {
		return nil, wrapError(err)
	}
	return c.decryptItem(raw), nil
}

// encryptDraft converts a plaintext draft into its wire form.
func (c *Client) encryptDraft(orgID string, draft *RecordDraft) (*api.ItemUpdate, error) {
	key, ok := c.session.orgKey(orgID)
	if !c.session.Initialized() || !ok {
		// Legacy pass-through: no org key, write plaintext at v1.
		fields := make([]api.ItemField, len(draft.Fields))
		for i, f := range draft.Fields {
			fields[i] = api.ItemField{Key: f.Key, Label: f.Label, Value: f.Value}
		}
		return &api.ItemUpdate{
			Name:              draft.Name,
			CategoryID:        draft.CategoryID,
			Notes:             draft.Notes,
			Fields:            fields,
			EncryptionVersion: EncryptionVersionLegacy,
		}, nil
	}

	return encryptDraftWithKey(key, draft)
}

// encryptDraftWithKey produces the version 2 wire form of a draft. Used
// by ordinary writes and by the background migrator.
func encryptDraftWithKey(key []byte, draft *RecordDraft) (*api.ItemUpdate, error) {
	encryptedName, err := crypto.EncryptString(key, draft.Name)
	if err != nil {
		return nil, wrapError(err)
	}
	notes := draft.Notes
	if notes != "" {
		if notes, err = crypto.EncryptString(key, notes); err != nil {
			return nil, wrapError(err)
		}
	}

	fields := make([]api.ItemField, len(draft.Fields))
	for i, f := range draft.Fields {
		value := f.Value
		if value != "" {
			if value, err = crypto.EncryptString(key, value); err != nil {
				return nil, wrapError(err)
			}
		}
		fields[i] = api.ItemField{Key: f.Key, Label: f.Label, Value: value}
	}

	return &api.ItemUpdate{
		EncryptedName:     encryptedName,
		CategoryID:        draft.CategoryID,
		Notes:             notes,
		Fields:            fields,
		EncryptionVersion: EncryptionVersionZeroKnowledge,
	}, nil
}

// decryptItem converts a wire item into its decrypted view. The fields
// of one record are independent; they decrypt concurrently and all
// complete before the record is returned.
func (c *Client) decryptItem(raw *api.Item) *Record {
	record := &Record{
		ID:                raw.ID,
		OrgID:             raw.OrgID,
		CategoryID:        raw.CategoryID,
		EncryptionVersion: raw.EncryptionVersion,
	}

	if raw.EncryptionVersion != EncryptionVersionZeroKnowledge {
		record.Name = decryptedField(raw.Name)
		record.Notes = decryptedField(raw.Notes)
		record.Fields = make([]RecordField, len(raw.Fields))
		for i, f := range raw.Fields {
			record.Fields[i] = RecordField{Key: f.Key, Label: f.Label, Value: decryptedField(f.Value)}
		}
		return record
	}

	key, ok := c.session.orgKey(raw.OrgID)
	if !ok {
		// Pending member or logged-out session: v2 content is
		// unreadable but must never crash a list view.
		record.Name = undecryptableField(raw.EncryptedName, ReasonKeyUnavailable)
		record.Notes = undecryptableField(raw.Notes, ReasonKeyUnavailable)
		record.Fields = make([]RecordField, len(raw.Fields))
		for i, f := range raw.Fields {
			record.Fields[i] = RecordField{Key: f.Key, Label: f.Label, Value: undecryptableField(f.Value, ReasonKeyUnavailable)}
		}
		return record
	}

	record.Fields = make([]RecordField, len(raw.Fields))

	var wg sync.WaitGroup
	wg.Add(2 + len(raw.Fields))
	go func() {
		defer wg.Done()
		record.Name = decryptField(key, raw.EncryptedName)
	}()
	go func() {
		defer wg.Done()
		record.Notes = decryptField(key, raw.Notes)
	}()
	for i := range raw.Fields {
		go func(i int) {
			defer wg.Done()
			f := raw.Fields[i]
			record.Fields[i] = RecordField{Key: f.Key, Label: f.Label, Value: decryptField(key, f.Value)}
		}(i)
	}
	wg.Wait()

	return record
}

// decryptField decrypts one transport string into a FieldResult. Empty
// values stay empty.
func decryptField(key []byte, ciphertext string) FieldResult {
	if ciphertext == "" {
		return decryptedField("")
	}

	plaintext, err := crypto.DecryptString(key, ciphertext)
	switch {
	case err == nil:
		return decryptedField(plaintext)
	case errors.Is(err, crypto.ErrMalformedCiphertext):
		return undecryptableField(ciphertext, ReasonMalformed)
	default:
		return undecryptableField(ciphertext, ReasonAuthenticationFailed)
	}
}

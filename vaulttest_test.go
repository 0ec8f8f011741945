package orgvault

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/orgvault/client-go/internal/api"
	"github.com/orgvault/client-go/internal/crypto"
)

// testIterations keeps the derivation chain fast in tests. The chain is
// identical to production; only the work factor differs.
const testIterations = 1_000

// fakeVault is an in-memory stand-in for the OrgVault service. It
// enforces the same contract the real service does: it stores only
// what clients send (hashes, wrapped keys, ciphertext) and never
// inspects any of it.
type fakeVault struct {
	mu sync.Mutex

	nextID    int
	users     map[string]*fakeUser          // by normalized email
	tokens    map[string]string             // session token -> email
	envelopes map[string]map[string]string  // orgID -> userID -> wrapped org key
	invites   map[string]fakeInvite         // invite token -> invite
	resets    map[string]string             // reset token -> email
	items     map[string]*api.Item

	// failGrants lists user ids whose envelope store returns 403, for
	// exercising partial ceremony failures.
	failGrants map[string]bool

	srv *httptest.Server
}

type fakeUser struct {
	id       string
	email    string
	fullName string
	orgID    string

	masterHash                  string
	encryptedPrivateKey         string
	recoveryEncryptedPrivateKey string
	publicKey                   string
	kdfIterations               int
}

type fakeInvite struct {
	email    string
	fullName string
	orgID    string
	orgName  string
}

func newFakeVault(t *testing.T) *fakeVault {
	t.Helper()

	v := &fakeVault{
		users:      make(map[string]*fakeUser),
		tokens:     make(map[string]string),
		envelopes:  make(map[string]map[string]string),
		invites:    make(map[string]fakeInvite),
		resets:     make(map[string]string),
		items:      make(map[string]*api.Item),
		failGrants: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", v.handleRegister)
	mux.HandleFunc("POST /auth/login", v.handleLogin)
	mux.HandleFunc("GET /auth/kdf-info", v.handleKDFInfo)
	mux.HandleFunc("GET /auth/me", v.handleMe)
	mux.HandleFunc("GET /auth/validate-invite", v.handleValidateInvite)
	mux.HandleFunc("POST /auth/accept-invite", v.handleAcceptInvite)
	mux.HandleFunc("POST /auth/org/{orgID}/keys", v.handleStoreKey)
	mux.HandleFunc("GET /auth/org/{orgID}/my-key", v.handleMyKey)
	mux.HandleFunc("GET /auth/org/{orgID}/pending-keys", v.handlePendingKeys)
	mux.HandleFunc("GET /auth/user/{userID}/public-key", v.handlePublicKey)
	mux.HandleFunc("POST /auth/forgot-password", v.handleForgotPassword)
	mux.HandleFunc("GET /auth/validate-reset", v.handleValidateReset)
	mux.HandleFunc("POST /auth/reset-password", v.handleResetPassword)
	mux.HandleFunc("POST /auth/change-password", v.handleChangePassword)
	mux.HandleFunc("GET /items", v.handleListItems)
	mux.HandleFunc("POST /items", v.handleCreateItem)
	mux.HandleFunc("GET /items/{itemID}", v.handleGetItem)
	mux.HandleFunc("PUT /items/{itemID}", v.handleUpdateItem)

	v.srv = httptest.NewServer(mux)
	t.Cleanup(v.srv.Close)
	return v
}

func (v *fakeVault) url() string { return v.srv.URL }

// client builds a client against the fake service with a fast work
// factor. Closed automatically at test end.
func (v *fakeVault) client(t *testing.T, opts ...Option) *Client {
	t.Helper()
	c, err := New(v.url(), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.cfg.kdfIterations = testIterations
	t.Cleanup(func() { c.Close() })
	return c
}

func (v *fakeVault) newID(prefix string) string {
	v.nextID++
	return fmt.Sprintf("%s-%d", prefix, v.nextID)
}

func (v *fakeVault) authUser(r *http.Request) *fakeUser {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return nil
	}
	email, ok := v.tokens[token]
	if !ok {
		return nil
	}
	return v.users[email]
}

func (v *fakeVault) addInvite(token, email, fullName, orgID, orgName string) {
	v.mu.Lock()
	v.invites[token] = fakeInvite{email: email, fullName: fullName, orgID: orgID, orgName: orgName}
	v.mu.Unlock()
}

func (v *fakeVault) addReset(token, email string) {
	v.mu.Lock()
	v.resets[token] = crypto.NormalizeEmail(email)
	v.mu.Unlock()
}

// seedLegacyItem stores a plaintext version 1 item directly, as if
// written before the zero-knowledge rollout.
func (v *fakeVault) seedLegacyItem(orgID, name, notes string, fields []api.ItemField) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.newID("item")
	v.items[id] = &api.Item{
		ID:                id,
		OrgID:             orgID,
		Name:              name,
		Notes:             notes,
		Fields:            fields,
		EncryptionVersion: api.EncryptionVersionLegacy,
	}
	return id
}

func (v *fakeVault) item(id string) *api.Item {
	v.mu.Lock()
	defer v.mu.Unlock()
	item := *v.items[id]
	return &item
}

func (v *fakeVault) envelope(orgID, userID string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.envelopes[orgID][userID]
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (v *fakeVault) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	json.NewDecoder(r.Body).Decode(&req)

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, exists := v.users[req.Email]; exists {
		writeDetail(w, http.StatusBadRequest, "email already registered")
		return
	}

	u := &fakeUser{
		id:                          v.newID("user"),
		email:                       req.Email,
		fullName:                    req.FullName,
		masterHash:                  req.MasterPasswordHash,
		encryptedPrivateKey:         req.EncryptedPrivateKey,
		recoveryEncryptedPrivateKey: req.RecoveryEncryptedPrivateKey,
		publicKey:                   req.PublicKey,
		kdfIterations:               req.KDFIterations,
	}
	if req.OrgName != "" {
		u.orgID = v.newID("org")
	}
	if req.EncryptedOrgKey != "" && u.orgID != "" {
		v.envelopes[u.orgID] = map[string]string{u.id: req.EncryptedOrgKey}
	}
	v.users[req.Email] = u

	token := v.newID("token")
	v.tokens[token] = u.email

	writeJSON(w, http.StatusOK, api.SessionResponse{Token: token, User: v.wireUser(u)})
}

func (v *fakeVault) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	json.NewDecoder(r.Body).Decode(&req)

	v.mu.Lock()
	defer v.mu.Unlock()

	u, ok := v.users[req.Email]
	if !ok || u.masterHash != req.MasterPasswordHash {
		writeDetail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token := v.newID("token")
	v.tokens[token] = u.email

	resp := api.SessionResponse{
		Token:               token,
		User:                v.wireUser(u),
		EncryptedPrivateKey: u.encryptedPrivateKey,
		PublicKey:           u.publicKey,
		KDFIterations:       u.kdfIterations,
	}
	if u.orgID != "" {
		resp.EncryptedOrgKey = v.envelopes[u.orgID][u.id]
	}
	writeJSON(w, http.StatusOK, resp)
}

func (v *fakeVault) wireUser(u *fakeUser) api.User {
	return api.User{ID: u.id, Email: u.email, FullName: u.fullName, ActiveOrgID: u.orgID}
}

func (v *fakeVault) handleKDFInfo(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()

	// Unknown accounts get the default to avoid enumeration.
	iterations := crypto.KDFIterations
	if u, ok := v.users[r.URL.Query().Get("email")]; ok {
		iterations = u.kdfIterations
	}
	writeJSON(w, http.StatusOK, api.KDFInfo{KDFIterations: iterations})
}

func (v *fakeVault) handleMe(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()

	u := v.authUser(r)
	if u == nil {
		writeDetail(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, api.User{
		ID:          u.id,
		Email:       u.email,
		FullName:    u.fullName,
		ActiveOrgID: u.orgID,
	})
}

func (v *fakeVault) handleValidateInvite(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()

	inv, ok := v.invites[r.URL.Query().Get("token")]
	if !ok {
		writeJSON(w, http.StatusOK, api.InviteValidation{Valid: false})
		return
	}
	writeJSON(w, http.StatusOK, api.InviteValidation{
		Valid:    true,
		Email:    inv.email,
		FullName: inv.fullName,
		OrgName:  inv.orgName,
	})
}

func (v *fakeVault) handleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	var req api.AcceptInviteRequest
	json.NewDecoder(r.Body).Decode(&req)

	v.mu.Lock()
	defer v.mu.Unlock()

	inv, ok := v.invites[req.Token]
	if !ok {
		writeDetail(w, http.StatusBadRequest, "invalid or expired token")
		return
	}
	delete(v.invites, req.Token)

	u := &fakeUser{
		id:                          v.newID("user"),
		email:                       crypto.NormalizeEmail(inv.email),
		fullName:                    inv.fullName,
		orgID:                       inv.orgID,
		masterHash:                  req.MasterPasswordHash,
		encryptedPrivateKey:         req.EncryptedPrivateKey,
		recoveryEncryptedPrivateKey: req.RecoveryEncryptedPrivateKey,
		publicKey:                   req.PublicKey,
		kdfIterations:               req.KDFIterations,
	}
	v.users[u.email] = u

	token := v.newID("token")
	v.tokens[token] = u.email

	writeJSON(w, http.StatusOK, api.SessionResponse{Token: token, User: v.wireUser(u)})
}

func (v *fakeVault) handleStoreKey(w http.ResponseWriter, r *http.Request) {
	var grant api.OrgKeyGrant
	json.NewDecoder(r.Body).Decode(&grant)

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.authUser(r) == nil {
		writeDetail(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if v.failGrants[grant.UserID] {
		writeDetail(w, http.StatusForbidden, "grant rejected")
		return
	}

	orgID := r.PathValue("orgID")
	if v.envelopes[orgID] == nil {
		v.envelopes[orgID] = make(map[string]string)
	}
	// Upsert: re-running a ceremony for a granted member is harmless.
	v.envelopes[orgID][grant.UserID] = grant.EncryptedOrgKey
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (v *fakeVault) handleMyKey(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()

	u := v.authUser(r)
	if u == nil {
		writeDetail(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	envelope, ok := v.envelopes[r.PathValue("orgID")][u.id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "org key not found")
		return
	}
	writeJSON(w, http.StatusOK, api.OrgKeyEnvelope{EncryptedOrgKey: envelope})
}

func (v *fakeVault) handlePendingKeys(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.authUser(r) == nil {
		writeDetail(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	orgID := r.PathValue("orgID")
	pending := []api.PendingMember{}
	for _, u := range v.users {
		if u.orgID != orgID {
			continue
		}
		if _, granted := v.envelopes[orgID][u.id]; granted {
			continue
		}
		pending = append(pending, api.PendingMember{
			UserID:    u.id,
			Email:     u.email,
			FullName:  u.fullName,
			PublicKey: u.publicKey,
		})
	}
	writeJSON(w, http.StatusOK, pending)
}

func (v *fakeVault) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()

	userID := r.PathValue("userID")
	for _, u := range v.users {
		if u.id == userID {
			writeJSON(w, http.StatusOK, api.PublicKeyResponse{PublicKey: u.publicKey})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "user not found")
}

func (v *fakeVault) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	// Uniform response regardless of account existence.
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (v *fakeVault) handleValidateReset(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()

	email, ok := v.resets[r.URL.Query().Get("token")]
	if !ok {
		writeJSON(w, http.StatusOK, api.ResetValidation{Valid: false})
		return
	}
	u := v.users[email]
	writeJSON(w, http.StatusOK, api.ResetValidation{
		Valid:                       true,
		Email:                       email,
		RecoveryEncryptedPrivateKey: u.recoveryEncryptedPrivateKey,
	})
}

func (v *fakeVault) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req api.ResetPasswordRequest
	json.NewDecoder(r.Body).Decode(&req)

	v.mu.Lock()
	defer v.mu.Unlock()

	email, ok := v.resets[req.Token]
	if !ok {
		writeDetail(w, http.StatusBadRequest, "invalid or expired token")
		return
	}
	delete(v.resets, req.Token)

	u := v.users[email]
	u.masterHash = req.MasterPasswordHash
	u.encryptedPrivateKey = req.EncryptedPrivateKey
	if req.RecoveryEncryptedPrivateKey != "" {
		u.recoveryEncryptedPrivateKey = req.RecoveryEncryptedPrivateKey
	}
	if req.KDFIterations > 0 {
		u.kdfIterations = req.KDFIterations
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (v *fakeVault) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req api.ChangePasswordRequest
	json.NewDecoder(r.Body).Decode(&req)

	v.mu.Lock()
	defer v.mu.Unlock()

	u := v.authUser(r)
	if u == nil {
		writeDetail(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if u.masterHash != req.CurrentMasterPasswordHash {
		writeDetail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	u.masterHash = req.NewMasterPasswordHash
	u.encryptedPrivateKey = req.NewEncryptedPrivateKey
	if req.NewRecoveryEncryptedPrivateKey != "" {
		u.recoveryEncryptedPrivateKey = req.NewRecoveryEncryptedPrivateKey
	}
	if req.NewKDFIterations > 0 {
		u.kdfIterations = req.NewKDFIterations
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (v *fakeVault) handleListItems(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()

	u := v.authUser(r)
	if u == nil {
		writeDetail(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	items := []api.Item{}
	for _, item := range v.items {
		if item.OrgID == u.orgID {
			items = append(items, *item)
		}
	}
	writeJSON(w, http.StatusOK, items)
}

func (v *fakeVault) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var update api.ItemUpdate
	json.NewDecoder(r.Body).Decode(&update)

	v.mu.Lock()
	defer v.mu.Unlock()

	u := v.authUser(r)
	if u == nil {
		writeDetail(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	item := &api.Item{
		ID:                v.newID("item"),
		OrgID:             u.orgID,
		Name:              update.Name,
		EncryptedName:     update.EncryptedName,
		CategoryID:        update.CategoryID,
		Notes:             update.Notes,
		Fields:            update.Fields,
		EncryptionVersion: update.EncryptionVersion,
	}
	v.items[item.ID] = item
	writeJSON(w, http.StatusOK, item)
}

func (v *fakeVault) handleGetItem(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.authUser(r) == nil {
		writeDetail(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	item, ok := v.items[r.PathValue("itemID")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (v *fakeVault) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var update api.ItemUpdate
	json.NewDecoder(r.Body).Decode(&update)

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.authUser(r) == nil {
		writeDetail(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	item, ok := v.items[r.PathValue("itemID")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "item not found")
		return
	}

	item.Name = update.Name
	item.EncryptedName = update.EncryptedName
	item.Notes = update.Notes
	item.Fields = update.Fields
	if update.CategoryID != "" {
		item.CategoryID = update.CategoryID
	}
	item.EncryptionVersion = update.EncryptionVersion
	writeJSON(w, http.StatusOK, item)
}

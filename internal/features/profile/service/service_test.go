package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "vpn-tool-bot/internal/common/errors"
	"vpn-tool-bot/internal/features/profile/models"
	"vpn-tool-bot/internal/features/profile/store"
)

// fakeRunner mimics the install script: Create drops the expected file
// into the directory, Revoke removes the client's file.
type fakeRunner struct {
	mu       sync.Mutex
	dir      string
	creates  []string
	revokes  []string
	installs int

	createErr error
	revokeErr error
	// skipWrite simulates a script that exits zero without producing the
	// output file.
	skipWrite bool
}

func (f *fakeRunner) Create(_ context.Context, client string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, client)
	if f.createErr != nil {
		return f.createErr
	}
	if f.skipWrite {
		return nil
	}
	return os.WriteFile(filepath.Join(f.dir, client+models.Extension), []byte("profile"), 0o644)
}

func (f *fakeRunner) Revoke(_ context.Context, client string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokes = append(f.revokes, client)
	if f.revokeErr != nil {
		return f.revokeErr
	}
	_ = os.Remove(filepath.Join(f.dir, client+models.Extension))
	return nil
}

func (f *fakeRunner) AutoInstall(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installs++
	return nil
}

func newService(t *testing.T) (*Service, *fakeRunner, string) {
	t.Helper()
	dir := t.TempDir()
	runner := &fakeRunner{dir: dir}
	svc := New(store.New(dir, 240*time.Hour), runner)
	return svc, runner, dir
}

var caller = models.Caller{ID: 111, Username: "alice", FirstName: "Alice", LastName: "Liddell"}

func TestEnsureProfileCreatesNew(t *testing.T) {
	svc, runner, dir := newService(t)

	p, err := svc.EnsureProfile(context.Background(), caller)
	require.NoError(t, err)

	require.Len(t, runner.creates, 1)
	assert.Empty(t, runner.revokes)
	assert.Contains(t, runner.creates[0], "id111_alice_Alice_Liddell_")
	assert.Equal(t, filepath.Join(dir, p.Name), p.Path)
	assert.FileExists(t, p.Path)
}

func TestEnsureProfileIdempotentWithinThreshold(t *testing.T) {
	svc, runner, _ := newService(t)

	first, err := svc.EnsureProfile(context.Background(), caller)
	require.NoError(t, err)
	second, err := svc.EnsureProfile(context.Background(), caller)
	require.NoError(t, err)

	assert.Equal(t, first.Name, second.Name)
	assert.Len(t, runner.creates, 1, "cache hit must not invoke the script again")
	assert.Empty(t, runner.revokes)
}

func TestEnsureProfileReplacesStale(t *testing.T) {
	svc, runner, dir := newService(t)

	old := "id111_alice_Alice_Liddell_1600000000000" + models.Extension
	require.NoError(t, os.WriteFile(filepath.Join(dir, old), []byte("old"), 0o644))
	past := time.Now().Add(-241 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, old), past, past))

	p, err := svc.EnsureProfile(context.Background(), caller)
	require.NoError(t, err)

	require.Len(t, runner.revokes, 1, "exactly one revoke")
	require.Len(t, runner.creates, 1, "exactly one create")
	assert.Equal(t, "id111_alice_Alice_Liddell_1600000000000", runner.revokes[0])
	assert.NotEqual(t, old, p.Name)
	assert.FileExists(t, p.Path)
}

func TestEnsureProfileSanitizesIdentifier(t *testing.T) {
	svc, runner, _ := newService(t)

	hostile := models.Caller{ID: 7, Username: "a;rm -rf /", FirstName: "../..", LastName: "O'Neil"}
	p, err := svc.EnsureProfile(context.Background(), hostile)
	require.NoError(t, err)

	require.Len(t, runner.creates, 1)
	assert.Regexp(t, `^[0-9A-Za-z_-]+$`, runner.creates[0])
	assert.Regexp(t, `^[0-9A-Za-z_-]+\.ovpn$`, p.Name)
}

func TestEnsureProfileMissingOutputFile(t *testing.T) {
	svc, runner, _ := newService(t)
	runner.skipWrite = true

	_, err := svc.EnsureProfile(context.Background(), caller)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeIssuanceFailed, appErr.Code)
}

func TestEnsureProfileCreateFailure(t *testing.T) {
	svc, runner, _ := newService(t)
	runner.createErr = errors.New("exit status 1")

	_, err := svc.EnsureProfile(context.Background(), caller)
	require.Error(t, err)
	assert.Len(t, runner.creates, 1, "no retries on script failure")
}

func TestEnsureProfileSerializedPerOwner(t *testing.T) {
	svc, runner, _ := newService(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.EnsureProfile(context.Background(), caller)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, runner.creates, 1, "concurrent requests for one owner issue once")
}

func TestRevokeByIndex(t *testing.T) {
	svc, runner, dir := newService(t)

	for i, owner := range []int64{111, 222} {
		name := fmt.Sprintf("id%d_user_170000000000%d%s", owner, i, models.Extension)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("p"), 0o644))
	}

	name, err := svc.RevokeByIndex(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "id222_user_1700000000001"+models.Extension, name)
	require.Len(t, runner.revokes, 1)
	assert.Equal(t, "id222_user_1700000000001", runner.revokes[0])
}

func TestRevokeByIndexOutOfRange(t *testing.T) {
	svc, runner, dir := newService(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "id111_a_1"+models.Extension), []byte("p"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id222_b_2"+models.Extension), []byte("p"), 0o644))

	_, err := svc.RevokeByIndex(context.Background(), 5)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.True(t, appErr.IsNotFound())
	assert.Empty(t, runner.revokes, "no subprocess call on a bad index")
}

func TestRevokeByIndexEmptyDir(t *testing.T) {
	svc, runner, _ := newService(t)

	_, err := svc.RevokeByIndex(context.Background(), 0)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.True(t, appErr.IsNotFound())
	assert.Empty(t, runner.revokes)
}

func TestBulkInstall(t *testing.T) {
	svc, runner, _ := newService(t)

	require.NoError(t, svc.BulkInstall(context.Background()))
	assert.Equal(t, 1, runner.installs)
}

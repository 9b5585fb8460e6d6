package factory

import (
	"fmt"
	"net/http"
	"time"

	"github.com/whisperhq/whisperd/internal/dependencies/groups"
	"github.com/whisperhq/whisperd/internal/dependencies/mocks"
	"github.com/whisperhq/whisperd/internal/services/auth"
	"github.com/whisperhq/whisperd/internal/storage/memory"
	"github.com/whisperhq/whisperd/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Directory  *groups.Static
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	dir := groups.NewStatic()

	// Plenty of IDs so tests rarely need to queue their own
	for i := 0; i < 100; i++ {
		mockRandom.QueueString(fmt.Sprintf("testid%06d", i))
	}

	app := newWithDependencies(store, mockClock, mockRandom, dir, http.DefaultClient, "http://test.local", auth.DefaultConfig(), testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Directory:  dir,
	}
}

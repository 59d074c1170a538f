package repo_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/rainbowtourguides/backend/testutil"
)

// TestMain migrates the shared test database once for the package. Without
// TEST_DATABASE_URL every test skips itself via testutil.NewPool.
func TestMain(m *testing.M) {
	if err := testutil.Migrate(context.Background()); err != nil {
		log.Fatalf("TestMain: %v", err)
	}
	os.Exit(m.Run())
}

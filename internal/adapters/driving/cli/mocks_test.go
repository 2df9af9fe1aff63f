package cli

import (
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/stevedore/internal/adapters/driven/config/file"
	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driving"
)

// mockSettings implements driving.SettingsService.
type mockSettings struct {
	upload  domain.UploadSettings
	service domain.ServiceSettings
}

func (m *mockSettings) UploadSettings() domain.UploadSettings   { return m.upload }
func (m *mockSettings) ServiceSettings() domain.ServiceSettings { return m.service }

// mockIngester implements driving.Ingester.
type mockIngester struct {
	report *domain.RunReport
	err    error
	target domain.Target
}

func (m *mockIngester) Ingest(_ context.Context, target domain.Target) (*domain.RunReport, error) {
	m.target = target
	return m.report, m.err
}

func (m *mockIngester) Status(context.Context) (*domain.RunStatus, error) {
	return &domain.RunStatus{Running: true}, nil
}

// mockHistory implements driving.RunHistory.
type mockHistory struct {
	runs []domain.RunReport
}

func (m *mockHistory) List(_ context.Context, limit int) ([]domain.RunReport, error) {
	if limit > 0 && len(m.runs) > limit {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func (m *mockHistory) Get(_ context.Context, id string) (*domain.RunReport, error) {
	for i := range m.runs {
		if m.runs[i].ID == id {
			return &m.runs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

// testApp is the services installed by setupTest, with the last upload
// request captured.
type testApp struct {
	settings *mockSettings
	ingester *mockIngester
	history  *mockHistory
	config   *file.ConfigStore
	request  *UploadRequest
}

func setupTest(t *testing.T) *testApp {
	t.Helper()

	cfg, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)

	ta := &testApp{
		settings: &mockSettings{
			upload:  domain.DefaultUploadSettings(),
			service: domain.DefaultServiceSettings(),
		},
		ingester: &mockIngester{report: &domain.RunReport{ID: "run-1"}},
		history:  &mockHistory{},
		config:   cfg,
	}

	old := app
	app = &Services{
		Settings: ta.settings,
		Config:   cfg,
		History:  ta.history,
		NewIngester: func(_ context.Context, req UploadRequest) (driving.Ingester, func() error, error) {
			ta.request = &req
			return ta.ingester, func() error { return nil }, nil
		},
	}
	resetFlags(rootCmd)
	t.Cleanup(func() {
		app = old
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
	})
	return ta
}

// resetFlags restores every flag to its default so earlier executions of the
// shared command tree do not leak into the next test.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

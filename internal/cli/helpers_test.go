package cli

import (
	"bytes"
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/borderlesspay/bpay/internal/config"
	"github.com/borderlesspay/bpay/internal/connector"
	"github.com/borderlesspay/bpay/internal/connector/connectortest"
	"github.com/borderlesspay/bpay/internal/session"
)

// memStore is an always-available session.Store.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]connector.Session
}

func newMemStore(sessions ...connector.Session) *memStore {
	m := &memStore{sessions: make(map[string]connector.Session)}
	for _, s := range sessions {
		m.sessions[s.Topic] = s
	}
	return m
}

func (m *memStore) Available() bool { return true }

func (m *memStore) Save(s connector.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Topic] = s
	return nil
}

func (m *memStore) Load() ([]connector.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]connector.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) List() ([]session.Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	infos := make([]session.Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, session.Info{Topic: s.Topic, AccountID: s.AccountID(), Peer: s.Peer.Name, Expiry: s.Expiry})
	}
	return infos, nil
}

func (m *memStore) Delete(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[topic]; !ok {
		return session.ErrSessionNotFound
	}
	delete(m.sessions, topic)
	return nil
}

func (m *memStore) DeleteAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.sessions)
	m.sessions = make(map[string]connector.Session)
	return n
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// useConnector makes every command construct f, or fail with err when f is
// nil. It returns the number of factory calls so far.
func useConnector(t *testing.T, f *connectortest.Fake, err error) *atomic.Int32 {
	t.Helper()
	calls := &atomic.Int32{}
	orig := newConnectorFactory
	t.Cleanup(func() { newConnectorFactory = orig })
	newConnectorFactory = func(*config.Config, *config.Logger) connector.Factory {
		return func(context.Context, connector.Options) (connector.Connector, error) {
			calls.Add(1)
			if f == nil {
				return nil, err
			}
			return f, nil
		}
	}
	return calls
}

// useStore makes every command use s for sessions.
func useStore(t *testing.T, s session.Store) {
	t.Helper()
	orig := newSessionStore
	t.Cleanup(func() { newSessionStore = orig })
	newSessionStore = func(*config.Config) session.Store { return s }
}

// testHome points the CLI at a fresh home directory and keeps log files
// out of the real one.
func testHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(config.EnvHome, "")
	return home
}

// writeConfig saves a config derived from the defaults into home.
func writeConfig(t *testing.T, home string, edit func(c *config.Config)) {
	t.Helper()
	c := config.Defaults()
	c.Home = home
	c.Logging.Level = "off"
	edit(c)
	require.NoError(t, config.Save(c, config.Path(home)))
}

// resetCommands restores every flag to its default and drops contexts left
// by an earlier run.
func resetCommands() {
	walkCommands(rootCmd, func(cmd *cobra.Command) {
		cmd.SetContext(context.Background())
		reset := func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
		cmd.Flags().VisitAll(reset)
		cmd.PersistentFlags().VisitAll(reset)
	})
}

// run executes the CLI with args and returns what it wrote.
func run(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	resetCommands()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--home", home}, args...))
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// noPrompts makes the confirmation prompt answer answer, as if on a terminal.
func noPrompts(t *testing.T, interactive, answer bool) *atomic.Int32 {
	t.Helper()
	asked := &atomic.Int32{}
	origConfirm, origInteractive := promptConfirmFn, isInteractiveFn
	t.Cleanup(func() {
		promptConfirmFn = origConfirm
		isInteractiveFn = origInteractive
	})
	isInteractiveFn = func() bool { return interactive }
	promptConfirmFn = func(io.Writer, string) bool {
		asked.Add(1)
		return answer
	}
	return asked
}

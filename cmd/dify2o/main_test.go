package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"
)

func TestAddrForLocalClient(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: ":12345", want: "127.0.0.1:12345"},
		{in: "0.0.0.0:3000", want: "127.0.0.1:3000"},
		{in: "[::]:3000", want: "127.0.0.1:3000"},
		{in: "127.0.0.1:3000", want: "127.0.0.1:3000"},
		{in: "[::1]:3000", want: "[::1]:3000"},
		{in: "not-an-addr", want: "not-an-addr"},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, addrForLocalClient(tc.in))
		})
	}
}

func TestAskMessages(t *testing.T) {
	msgs := askMessages("", "hi")
	require.Len(t, msgs, 1)
	require.Equal(t, schema.User, msgs[0].Role)

	msgs = askMessages("be brief", "hi")
	require.Len(t, msgs, 2)
	require.Equal(t, schema.System, msgs[0].Role)
	require.Equal(t, "hi", msgs[1].Content)
}

type fakeModel struct {
	chunks []string
	err    error
}

func (m *fakeModel) Generate(ctx context.Context, input []*schema.Message, _ ...einoModel.Option) (*schema.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	var content string
	for _, c := range m.chunks {
		content += c
	}
	return schema.AssistantMessage(content, nil), nil
}

func (m *fakeModel) Stream(ctx context.Context, input []*schema.Message, _ ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	if m.err != nil {
		return nil, m.err
	}
	msgs := make([]*schema.Message, 0, len(m.chunks))
	for _, c := range m.chunks {
		msgs = append(msgs, schema.AssistantMessage(c, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

func TestRunAsk(t *testing.T) {
	m := &fakeModel{chunks: []string{"Hel", "lo"}}

	var out bytes.Buffer
	require.NoError(t, runAsk(context.Background(), m, &out, askMessages("", "hi"), true))
	require.Equal(t, "Hello\n", out.String())

	out.Reset()
	require.NoError(t, runAsk(context.Background(), m, &out, askMessages("", "hi"), false))
	require.Equal(t, "Hello\n", out.String())

	boom := errors.New("boom")
	require.ErrorIs(t, runAsk(context.Background(), &fakeModel{err: boom}, io.Discard, nil, true), boom)
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, loadDotEnv(""))
	require.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DIFY2O_TEST_DOTENV=from-file\n"), 0o600))
	t.Setenv("DIFY2O_TEST_DOTENV", "")
	os.Unsetenv("DIFY2O_TEST_DOTENV")
	require.NoError(t, loadDotEnv(path))
	require.Equal(t, "from-file", os.Getenv("DIFY2O_TEST_DOTENV"))
}

func TestRootCmd_InitLoadsConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("DIFY_API_KEY", "app-env")
	t.Setenv("PORT", "4000")

	a := &app{envFile: filepath.Join(dir, ".env")}
	require.NoError(t, a.init())
	t.Cleanup(func() { _ = a.closeLog() })

	require.Equal(t, 4000, a.cfg.Server.Port)
	key, err := a.keyProvider.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "app-env", key)
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	require.True(t, names["serve"])
	require.True(t, names["ask"])
}

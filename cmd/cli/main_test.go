package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/bootstrap"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/config"
)

const dataset = `[
	{"id kategori": 1, "kategori": "Elektronik", "kategori-1": "HP"},
	{"id kategori": "2", "kategori": "Elektronik", "kategori-1": "Laptop"},
	{"kategori": "Fashion"}
]`

func testApp(t *testing.T) *bootstrap.App {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "categories.json")
	require.NoError(t, os.WriteFile(src, []byte(dataset), 0o644))

	cfg, err := config.FromLookup(func(k string) (string, bool) {
		v, ok := map[string]string{
			"SQLITE_PATH":     filepath.Join(dir, "categories.db"),
			"CATEGORY_SOURCE": src,
		}[k]
		return v, ok
	})
	require.NoError(t, err)

	app, err := bootstrap.New(context.Background(), cfg)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestRunSync_PartialSuccess(t *testing.T) {
	app := testApp(t)
	var out bytes.Buffer

	err := runSync(context.Background(), app, nil, &out)
	assert.ErrorIs(t, err, errPartial)

	body := decode(t, &out)
	assert.Equal(t, true, body["success"])
	stats := body["stats"].(map[string]interface{})
	assert.Equal(t, float64(3), stats["total"])
	assert.Equal(t, float64(2), stats["success"])
	assert.Equal(t, float64(1), stats["errors"])
}

func TestRunSync_DryRun(t *testing.T) {
	app := testApp(t)
	var out bytes.Buffer

	_ = runSync(context.Background(), app, []string{"-dry-run"}, &out)
	assert.Equal(t, true, decode(t, &out)["stats"].(map[string]interface{})["dryRun"])

	out.Reset()
	require.NoError(t, runCount(context.Background(), app, nil, &out))
	counts := decode(t, &out)["counts"].(map[string]interface{})
	assert.Equal(t, float64(3), counts["json"])
	assert.Equal(t, float64(0), counts["database"])
}

func TestRunQuery(t *testing.T) {
	app := testApp(t)
	ctx := context.Background()
	_ = runSync(ctx, app, nil, &bytes.Buffer{})

	var out bytes.Buffer
	require.NoError(t, runQuery(ctx, app, []string{"-main", "Elektronik", "-sub1", "Laptop"}, &out))
	body := decode(t, &out)
	assert.Equal(t, float64(1), body["count"])

	out.Reset()
	require.NoError(t, runQuery(ctx, app, []string{"-id", "99"}, &out))
	assert.Equal(t, float64(0), decode(t, &out)["count"])
}

func TestRunSync_MissingSource(t *testing.T) {
	app := testApp(t)
	var out bytes.Buffer

	err := runSync(context.Background(), app, []string{"-source", "/does/not/exist.json"}, &out)
	require.Error(t, err)
	body := decode(t, &out)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "source unavailable")
}

func TestRunUpload_RequiresFlags(t *testing.T) {
	t.Setenv("GCS_BUCKET", "")
	err := runUpload(context.Background(), zerolog.Nop(), []string{"-file", "x.json"}, &bytes.Buffer{})
	assert.Error(t, err)
}

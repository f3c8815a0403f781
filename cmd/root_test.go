package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtleson01/bird-app/internal/app"
	"github.com/turtleson01/bird-app/internal/buildinfo"
	"github.com/turtleson01/bird-app/internal/conf"
	"github.com/turtleson01/bird-app/internal/identify"
	"github.com/turtleson01/bird-app/internal/logger"
)

const masterList = "번호,목,과,학명,국명\n" +
	"1,참새목,참새과,Passer montanus,참새\n" +
	"2,참새목,까마귀과,Pica serica,까치\n" +
	"3,파랑새목,물총새과,Alcedo atthis,물총새\n"

// newTestContext returns a Context with settings pointing at a fresh
// SQLite file, so runs within one test share state.
func newTestContext(t *testing.T) *app.Context {
	t.Helper()
	dir := t.TempDir()
	ref := filepath.Join(dir, "bird_list.csv")
	require.NoError(t, os.WriteFile(ref, []byte(masterList), 0o600))

	ctx := app.NewContext(buildinfo.NewContext("v1.2.3", "2026-01-01", "abc123"))
	ctx.Log = logger.NewDiscardLogger()
	ctx.Settings = &conf.Settings{
		Reference: conf.ReferenceSettings{Path: ref},
		Catalog:   conf.CatalogSettings{AllowUncatalogued: true},
		Store: conf.StoreSettings{
			Backend: conf.BackendSQLite,
			SQLite:  conf.SQLiteSettings{Path: filepath.Join(dir, "birddex.db")},
		},
		Identify: conf.IdentifySettings{Concurrency: 2, Timeout: 5 * time.Second},
		Progress: conf.ProgressSettings{
			XPPerLevel:       100,
			AchievementBonus: 50,
			XP:               map[string]int{"common": 10, "rare": 30},
			Rarity:           map[string][]string{"rare": {"물총새"}},
		},
		Sprite: conf.SpriteSettings{OutputDir: filepath.Join(dir, "sprites"), Language: "ko"},
	}
	return ctx
}

func run(t *testing.T, ctx *app.Context, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd := RootCommand(ctx)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(t.Context())
	return buf.String(), err
}

func TestRootHelpAndVersion(t *testing.T) {
	t.Parallel()

	out, err := run(t, newTestContext(t), "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "sightings")

	out, err = run(t, newTestContext(t), "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "v1.2.3 (commit abc123, built 2026-01-01)")
}

func TestSpeciesCommands(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t)

	out, err := run(t, ctx, "species", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "참새")
	assert.Contains(t, out, "희귀", "물총새 is listed as rare")

	out, err = run(t, ctx, "species", "list", "--family", "까마귀과")
	require.NoError(t, err)
	assert.Contains(t, out, "까치")
	assert.NotContains(t, out, "물총새")

	_, err = run(t, ctx, "species", "show", "두루미")
	require.Error(t, err)
}

func TestSightingsLifecycle(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t)

	out, err := run(t, ctx, "sightings", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No sightings recorded yet")

	out, err = run(t, ctx, "sightings", "add", "물총새", "--sex", "female", "--lat", "37.5", "--lon", "127.0", "--place", "청계천")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded 물총새 (#3)")
	assert.Contains(t, out, "Achievement unlocked")

	_, err = run(t, ctx, "sightings", "add", "물총새")
	require.Error(t, err, "duplicates are rejected")

	_, err = run(t, ctx, "sightings", "add", "까치", "--lat", "37.5")
	require.Error(t, err, "latitude without longitude")

	out, err = run(t, ctx, "sightings", "add", "동박새")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded 동박새 (-)")

	out, err = run(t, ctx, "sightings", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "물총새")
	assert.Contains(t, lines[1], "청계천")
	assert.Contains(t, lines[2], "동박새", "uncatalogued sightings sort last")

	out, err = run(t, ctx, "sightings", "export", "--format", "json")
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.InDelta(t, 3, records[0]["ordinal"], 0)
	assert.Nil(t, records[1]["ordinal"])

	out, err = run(t, ctx, "sightings", "export")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ordinal,name,sex,recorded_at,place,lat,lon\n"))
	assert.Contains(t, out, "3,물총새,female,")

	out, err = run(t, ctx, "sightings", "export", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: 동박새")

	_, err = run(t, ctx, "sightings", "export", "--format", "xml")
	require.Error(t, err)

	out, err = run(t, ctx, "sightings", "delete", "물총새", "동박새")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 2 sighting(s)")
}

func TestStatsCommands(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t)

	_, err := run(t, ctx, "sightings", "add", "물총새")
	require.NoError(t, err)

	out, err := run(t, ctx, "stats", "--families")
	require.NoError(t, err)
	assert.Contains(t, out, "Collected 1/3 species (33.3%)")
	assert.Contains(t, out, "Level 2, 130 XP")
	assert.Contains(t, out, "물총새과")

	out, err = run(t, ctx, "stats", "level")
	require.NoError(t, err)
	assert.Contains(t, out, "Level 2")

	out, err = run(t, ctx, "stats", "achievements", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "unlocked")
	assert.Contains(t, out, "locked")

	out, err = run(t, ctx, "dex")
	require.NoError(t, err)
	assert.Contains(t, out, "003  물총새")
	assert.Contains(t, out, "???", "uncollected species are hidden")

	out, err = run(t, ctx, "dex", "--collected")
	require.NoError(t, err)
	assert.NotContains(t, out, "???")
}

func TestIdentifyCommand(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t)

	dir := t.TempDir()
	img := filepath.Join(dir, "bird.jpg")
	require.NoError(t, os.WriteFile(img, []byte("\xff\xd8\xff\xe0fake"), 0o600))

	_, err := run(t, ctx, "identify", img)
	require.Error(t, err, "no API key configured")

	ctx.Options = []app.Option{app.WithIdentifier(identify.IdentifierFunc(
		func(context.Context, identify.Image, identify.Prompt) (string, error) {
			return "까치 | 검은 머리와 흰 배", nil
		}))}

	out, err := run(t, ctx, "identify", img, "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "bird.jpg")
	assert.Contains(t, out, "검은 머리와 흰 배")
	assert.Contains(t, out, "Recorded 까치")

	out, err = run(t, ctx, "identify", img, "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "Skipped 까치")
}

func TestConfigCommands(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	ctx := app.NewContext(buildinfo.NewContext("", "", ""))
	ctx.Log = logger.NewDiscardLogger()

	out, err := run(t, ctx, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)
	assert.Nil(t, ctx.Settings, "init does not load settings")

	_, err = run(t, ctx, "config", "init", path)
	require.Error(t, err, "existing files are kept")

	ctx = newTestContext(t)
	ctx.Settings.Identify.APIKey = "secret-key"
	out, err = run(t, ctx, "config", "dump")
	require.NoError(t, err)
	assert.NotContains(t, out, "secret-key")
	assert.Contains(t, out, "********")
}

func TestConfigFileIsLoaded(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, conf.WriteDefaultConfig(path))

	ctx := app.NewContext(buildinfo.NewContext("", "", ""))
	ctx.Log = logger.NewDiscardLogger()
	out, err := run(t, ctx, "--config", path, "--debug", "config", "dump")
	require.NoError(t, err)
	require.NotNil(t, ctx.Settings)
	assert.True(t, ctx.Settings.Debug)
	assert.Equal(t, "debug", ctx.Settings.Logging.DefaultLevel)
	assert.Contains(t, out, "gemini-2.5-flash")
}

func TestNotifyCommand(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t)

	_, err := run(t, ctx, "notify")
	require.Error(t, err, "no channel configured")

	ctx.Settings.Notification.URLs = []string{"logger://"}
	out, err := run(t, ctx, "notify", "--species", "물총새", "--unlocked", "첫 발견")
	require.NoError(t, err)
	assert.Contains(t, out, "type=sighting.saved species=물총새")

	list, err := run(t, ctx, "sightings", "list")
	require.NoError(t, err)
	assert.Contains(t, list, "No sightings recorded yet", "notify records nothing")
}

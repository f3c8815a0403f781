package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/sighting"
)

const testSpreadsheet = "sheet-id"

// fakeSheets serves the values endpoints of a single worksheet.
type fakeSheets struct {
	mu      sync.Mutex
	cells   [][]string
	updates int
	ranges  []string
	fail    int // status returned for every request when non-zero
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := "/v4/spreadsheets/" + testSpreadsheet + "/values/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	f.ranges = append(f.ranges, strings.TrimPrefix(r.URL.Path, prefix))

	w.Header().Set("Content-Type", "application/json")
	if f.fail != 0 {
		w.WriteHeader(f.fail)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"The caller does not have permission","status":"PERMISSION_DENIED"}}`))
		return
	}

	switch r.Method {
	case http.MethodGet:
		values := make([][]any, 0, len(f.cells))
		for _, row := range f.cells {
			out := make([]any, len(row))
			for i, c := range row {
				out[i] = c
			}
			values = append(values, out)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"range": "Sheet1!A1:Z100", "majorDimension": "ROWS", "values": values})
	case http.MethodPut:
		if r.URL.Query().Get("valueInputOption") != valueInputRaw {
			http.Error(w, "missing valueInputOption", http.StatusBadRequest)
			return
		}
		var body struct {
			Values [][]string `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.apply(body.Values)
		f.updates++
		_, _ = w.Write([]byte(`{"spreadsheetId":"` + testSpreadsheet + `"}`))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// apply writes values from A1 and trims trailing blanks the way the real
// service omits them from reads.
func (f *fakeSheets) apply(values [][]string) {
	for i, row := range values {
		for len(f.cells) <= i {
			f.cells = append(f.cells, nil)
		}
		for j, v := range row {
			for len(f.cells[i]) <= j {
				f.cells[i] = append(f.cells[i], "")
			}
			f.cells[i][j] = v
		}
	}
	for i, row := range f.cells {
		end := len(row)
		for end > 0 && row[end-1] == "" {
			end--
		}
		f.cells[i] = row[:end]
	}
	end := len(f.cells)
	for end > 0 && len(f.cells[end-1]) == 0 {
		end--
	}
	f.cells = f.cells[:end]
}

func (f *fakeSheets) snapshot() (cells [][]string, updates int, ranges []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cells, f.updates, f.ranges
}

func newTestTable(t *testing.T, fake *fakeSheets) *Table {
	t.Helper()
	return newNamedTable(t, fake, "")
}

func newNamedTable(t *testing.T, fake *fakeSheets, sheetName string) *Table {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	table, err := New(context.Background(),
		Config{SpreadsheetID: testSpreadsheet, SheetName: sheetName},
		nil,
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return table
}

func TestReadAll(t *testing.T) {
	t.Parallel()

	fake := &fakeSheets{cells: [][]string{
		{"No", "bird_name", "sex"},
		{"1", "참새"},
	}}
	table := newTestTable(t, fake)

	rows, err := table.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"No", "bird_name", "sex"}, {"1", "참새"}}, rows)
	_, _, ranges := fake.snapshot()
	assert.Equal(t, []string{"'Sheet1'"}, ranges)
}

func TestReplaceAllBlanksLeftovers(t *testing.T) {
	t.Parallel()

	fake := &fakeSheets{cells: [][]string{
		{"No", "bird_name", "memo"},
		{"1", "참새", "x"},
		{"2", "까치"},
		{"3", "직박구리"},
	}}
	table := newTestTable(t, fake)

	err := table.ReplaceAll(context.Background(), [][]string{
		{"No", "bird_name"},
		{"1", "직박구리"},
	})
	require.NoError(t, err)

	cells, updates, ranges := fake.snapshot()
	assert.Equal(t, 1, updates, "replacement is a single update")
	assert.Equal(t, [][]string{{"No", "bird_name"}, {"1", "직박구리"}}, cells)
	assert.Equal(t, "'Sheet1'!A1", ranges[len(ranges)-1])
}

func TestSheetNamesAreQuoted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sheet     string
		wantRead  string
		wantWrite string
	}{
		{"Sheet1", "'Sheet1'", "'Sheet1'!A1"},
		{"My Log", "'My Log'", "'My Log'!A1"},
		{"Jin's birds", "'Jin''s birds'", "'Jin''s birds'!A1"},
		{"탐조 기록", "'탐조 기록'", "'탐조 기록'!A1"},
	}

	for _, tt := range tests {
		t.Run(tt.sheet, func(t *testing.T) {
			t.Parallel()

			fake := &fakeSheets{cells: [][]string{{"No", "bird_name"}}}
			table := newNamedTable(t, fake, tt.sheet)

			require.NoError(t, table.ReplaceAll(context.Background(), [][]string{{"No", "bird_name"}, {"1", "참새"}}))

			_, _, ranges := fake.snapshot()
			require.Len(t, ranges, 2, "one read then one update")
			assert.Equal(t, tt.wantRead, ranges[0])
			assert.Equal(t, tt.wantWrite, ranges[1])
		})
	}
}

func TestErrorsAreNetworkCategory(t *testing.T) {
	t.Parallel()

	fake := &fakeSheets{fail: http.StatusForbidden}
	table := newTestTable(t, fake)

	_, err := table.ReadAll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
	assert.Contains(t, err.Error(), "The caller does not have permission")

	err = table.ReplaceAll(context.Background(), [][]string{{"No"}})
	require.Error(t, err)
	_, updates, _ := fake.snapshot()
	assert.Zero(t, updates)
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{}, nil, option.WithoutAuthentication())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestStoreOverSheets(t *testing.T) {
	t.Parallel()

	fake := &fakeSheets{}
	store := sighting.NewStore(newTestTable(t, fake), nil, sighting.Policy{AllowUncatalogued: true}, nil)
	ctx := context.Background()

	_, err := store.Save(ctx, sighting.SaveRequest{Name: "참새"})
	require.NoError(t, err)
	_, err = store.Save(ctx, sighting.SaveRequest{Name: "참새"})
	assert.ErrorIs(t, err, sighting.ErrDuplicate)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "참새", list[0].SpeciesName)
	cells, _, _ := fake.snapshot()
	assert.Equal(t, sighting.Header, cells[0])
}

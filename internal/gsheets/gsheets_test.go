package gsheets

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sgerrors "sheetgenie/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sheetID = "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms"

func TestParseURL(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want Ref
	}{
		{"edit link", "https://docs.google.com/spreadsheets/d/" + sheetID + "/edit", Ref{SheetID: sheetID}},
		{"tab link", "https://docs.google.com/spreadsheets/d/" + sheetID + "/edit#gid=123", Ref{SheetID: sheetID, GID: "123"}},
		{"range", "https://docs.google.com/spreadsheets/d/" + sheetID + "/edit?range=Q1%20Sales!A1:C9", Ref{SheetID: sheetID, SheetName: "Q1 Sales"}},
		{"drive open", "https://drive.google.com/open?id=" + sheetID, Ref{SheetID: sheetID}},
		{"bare id", "  " + sheetID + "  ", Ref{SheetID: sheetID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseURL(tc.url)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ParseURL("https://example.com/sheet")
	assert.ErrorIs(t, err, sgerrors.CodeInvalidRequest)
	_, err = ParseURL("")
	assert.ErrorIs(t, err, sgerrors.CodeInvalidRequest)
}

func TestValidate(t *testing.T) {
	ok := Validate("https://docs.google.com/spreadsheets/d/" + sheetID + "/edit")
	assert.True(t, ok.Valid)
	assert.Equal(t, sheetID, ok.SheetID)

	assert.Equal(t, "URL is required", Validate(" ").Error)
	assert.Equal(t, "Please provide a valid Google Sheets URL", Validate(sheetID).Error)
	assert.Equal(t, "Could not extract sheet ID from URL", Validate("https://docs.google.com/spreadsheets/u/0/").Error)
}

type fakeGoogle struct {
	mu    sync.Mutex
	paths []string
	hits  atomic.Int32
	csv   func(w http.ResponseWriter, r *http.Request)
	gviz  func(w http.ResponseWriter, r *http.Request)
	html  func(w http.ResponseWriter, r *http.Request)
	delay time.Duration
}

func (f *fakeGoogle) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.hits.Add(1)
	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path+"?"+r.URL.RawQuery)
	f.mu.Unlock()
	time.Sleep(f.delay)

	handler := http.NotFound
	switch {
	case strings.HasSuffix(r.URL.Path, "/export") && f.csv != nil:
		handler = f.csv
	case strings.HasSuffix(r.URL.Path, "/gviz/tq") && f.gviz != nil:
		handler = f.gviz
	case strings.HasSuffix(r.URL.Path, "/pubhtml") && f.html != nil:
		handler = f.html
	}
	handler(w, r)
}

func newTestClient(t *testing.T, fake *fakeGoogle) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
}

func TestFetchCSV(t *testing.T) {
	fake := &fakeGoogle{csv: func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("gid"))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		fmt.Fprint(w, "Region, Sales\nEast, 100\n,\nWest,250.5\n")
	}}
	client := newTestClient(t, fake)

	got, err := client.Fetch(context.Background(), "https://docs.google.com/spreadsheets/d/"+sheetID+"/edit#gid=7")
	require.NoError(t, err)
	assert.Equal(t, MethodCSV, got.Method)
	assert.Equal(t, sheetID, got.Ref.SheetID)
	assert.Equal(t, []string{"Region", "Sales"}, got.Table.Header())
	assert.Equal(t, 2, got.Table.Rows())
	assert.Equal(t, 250.5, got.Table.Cell(1, 1).Any())
}

func TestFetchFallsBackToGviz(t *testing.T) {
	fake := &fakeGoogle{
		csv: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html>sign in</html>")
		},
		gviz: func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `/*O_o*/
google.visualization.Query.setResponse({"status":"ok","table":{"cols":[{"id":"A","label":"Product"},{"id":"B","label":""}],"rows":[{"c":[{"v":"Laptop"},{"v":1500.0}]},{"c":[{"v":"Phone"},null]}]}});`)
		},
	}
	client := newTestClient(t, fake)

	got, err := client.Fetch(context.Background(), sheetID)
	require.NoError(t, err)
	assert.Equal(t, MethodJSON, got.Method)
	assert.Equal(t, []string{"Product", "B"}, got.Table.Header())
	assert.Equal(t, 1500.0, got.Table.Cell(0, 1).Any())
	assert.True(t, got.Table.Cell(1, 1).IsEmpty())
}

func TestFetchFallsBackToPublishedHTML(t *testing.T) {
	fake := &fakeGoogle{html: func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><table class="waffle"><tbody>
<tr><th>1</th><td></td><td></td></tr>
<tr><th>2</th><td>Month</td><td>Revenue</td></tr>
<tr><th>3</th><td>Jan</td><td> 42 </td></tr>
</tbody></table></body></html>`)
	}}
	client := newTestClient(t, fake)

	got, err := client.Fetch(context.Background(), sheetID)
	require.NoError(t, err)
	assert.Equal(t, MethodHTML, got.Method)
	assert.Equal(t, []string{"Month", "Revenue"}, got.Table.Header())
	assert.Equal(t, 42.0, got.Table.Cell(0, 1).Any())
}

func TestFetchPrivateSheetIsUpstreamError(t *testing.T) {
	client := newTestClient(t, &fakeGoogle{})

	_, err := client.Fetch(context.Background(), sheetID)
	require.Error(t, err)
	assert.ErrorIs(t, err, sgerrors.CodeUpstreamProvider)
	assert.Contains(t, err.Error(), "publicly accessible")
}

func TestFetchSharesInFlightRequests(t *testing.T) {
	fake := &fakeGoogle{delay: 50 * time.Millisecond, csv: func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, "A,B\n1,2\n")
	}}
	client := newTestClient(t, fake)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := client.Fetch(context.Background(), sheetID)
			assert.NoError(t, err)
			if got != nil {
				assert.Equal(t, 1, got.Table.Rows())
			}
		}()
	}
	wg.Wait()
	assert.Less(t, fake.hits.Load(), int32(5))
}

func TestFetchHonoursCallerCancellation(t *testing.T) {
	fake := &fakeGoogle{delay: 200 * time.Millisecond}
	client := newTestClient(t, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.Fetch(ctx, sheetID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

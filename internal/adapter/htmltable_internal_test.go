package adapter

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/evgeniytob14/table/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRoundTripper — its a mock for http.RoundTripper.
type mockRoundTripper struct {
	response *http.Response
	err      error
}

func (m *mockRoundTripper) RoundTrip(_ *http.Request) (*http.Response, error) {
	return m.response, m.err
}

func TestHTMLTable_ParseTableResponse(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHTMLTable(logger, "", "")

	validHTML := `
	<html>
	<body>
		<table class="table-bordered">
			<tbody>
				<tr>
					<td> Red Key </td><td>$5.00</td><td>3</td>
				</tr>
				<tr>
					<td>Blue Key</td><td>2.50</td><td> 2/2 </td>
				</tr>
				<tr>
					<td>row with too few cells</td>
				</tr>
				<tr>
					<td>Broken Price</td><td>n/a</td><td>1</td>
				</tr>
				<tr>
					<td></td><td>$1.00</td><td>1</td>
				</tr>
			</tbody>
		</table>
	</body>
	</html>`

	expectedItems := []models.Item{
		{Name: "Red Key", Price: 500, Stock: "3"},
		{Name: "Blue Key", Price: 250, Stock: "2/2"},
	}

	testCases := []struct {
		name        string
		inputHTML   string
		expected    []models.Item
		expectError bool
	}{
		{
			name:      "success: skips malformed rows",
			inputHTML: validHTML,
			expected:  expectedItems,
		},
		{
			name:      "success: empty table yields no items",
			inputHTML: `<html><body><table class="table-bordered"><tbody></tbody></table></body></html>`,
			expected:  nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			items, err := h.parseTableResponse(t.Context(), bytes.NewBufferString(tc.inputHTML))

			if tc.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, items)
		})
	}
}

func TestHTMLTable_Fetch_HTTPFailures(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("transport error", func(t *testing.T) {
		h := NewHTMLTable(logger, "http://example.test/prices", "")
		h.client = &http.Client{Transport: &mockRoundTripper{err: errors.New("connection refused")}}

		_, err := h.Fetch(t.Context())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to request")
	})

	t.Run("non-200 status", func(t *testing.T) {
		h := NewHTMLTable(logger, "http://example.test/prices", "")
		h.client = &http.Client{Transport: &mockRoundTripper{response: &http.Response{
			StatusCode: http.StatusServiceUnavailable,
			Status:     "503 Service Unavailable",
			Body:       io.NopCloser(bytes.NewBufferString("")),
		}}}

		_, err := h.Fetch(t.Context())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status code error")
	})

	t.Run("invalid destination URL", func(t *testing.T) {
		h := NewHTMLTable(logger, "http://bad url with spaces", "")

		_, err := h.Fetch(t.Context())
		require.Error(t, err)
	})
}

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		raw         string
		expected    int64
		expectError bool
	}{
		{raw: "$5.00", expected: 500},
		{raw: "5.70", expected: 570},
		{raw: " $1,234.56 ", expected: 123456},
		{raw: "0", expected: 0},
		{raw: "5.705", expected: 571},
		{raw: "-1.00", expectError: true},
		{raw: "free", expectError: true},
		{raw: "", expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			price, err := ParsePrice(tc.raw)
			if tc.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, price)
		})
	}
}

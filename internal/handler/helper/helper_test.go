package helper

import (
	"bytes"
	"encoding/csv"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
)

func sampleResults() []entity.FeedEntry {
	return []entity.FeedEntry{
		{ParticipantID: "p-1", UserID: "=HYPERLINK()", PostID: "post-1", LikeCount: 7, Qualification: entity.QualificationQualified},
		{ParticipantID: "p-2", UserID: "user-2", LikeCount: 1, Qualification: entity.QualificationDisqualified},
	}
}

func TestWriteResultsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResultsCSV(&buf, sampleResults()))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}), "CSV должен начинаться с BOM")

	rows, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, resultHeaders, rows[0])
	assert.Equal(t, []string{"1", "p-1", "'=HYPERLINK()", "post-1", "7", "Прошел"}, rows[1])
	assert.Equal(t, []string{"2", "p-2", "user-2", "", "1", "Выбыл"}, rows[2])
}

func TestWriteResultsXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResultsXLSX(&buf, "Round 1", sampleResults()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Round 1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Лайки", rows[0][4])
	assert.Equal(t, "'=HYPERLINK()", rows[1][2])
	assert.Equal(t, "7", rows[1][4])
	assert.Equal(t, "Выбыл", rows[2][5])
}

func TestSafeSheetName(t *testing.T) {
	assert.Equal(t, "Round 1_ Finals", SafeSheetName("Round 1: Finals"))
	assert.Equal(t, "Results", SafeSheetName("  "))
	assert.Len(t, []rune(SafeSheetName("Очень длинное название раунда конкурса танцев")), 31)
}

func TestQualificationLabel(t *testing.T) {
	assert.Equal(t, "Не обработан", QualificationLabel(entity.QualificationUnprocessed))
}

func TestParsePagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		query    string
		page     int
		pageSize int
	}{
		{"", 1, defaultPageSize},
		{"?page=3&page_size=10", 3, 10},
		{"?page=-1&page_size=abc", 1, defaultPageSize},
		{"?page_size=1000", 1, maxPageSize},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/"+tt.query, nil)
		page, size := ParsePagination(c)
		assert.Equal(t, tt.page, page, tt.query)
		assert.Equal(t, tt.pageSize, size, tt.query)
	}
}

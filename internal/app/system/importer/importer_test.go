package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dalemusser/carehub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingUploader struct {
	calls       atomic.Int32
	contentType string
	body        string
	res         models.ImportResult
	err         error
	during      func()
}

func (u *countingUploader) Import(_ context.Context, _, _, contentType string, r io.Reader) (models.ImportResult, error) {
	u.calls.Add(1)
	u.contentType = contentType
	b, _ := io.ReadAll(r)
	u.body = string(b)
	if u.during != nil {
		u.during()
	}
	return u.res, u.err
}

func csvFile(name, ct, body string) File {
	return File{Name: name, ContentType: ct, Size: int64(len(body)), Body: strings.NewReader(body)}
}

func xlsxBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"[Content_Types].xml", "xl/workbook.xml"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("<x/>"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestValidate(t *testing.T) {
	x := xlsxBytes(t)
	tests := []struct {
		name    string
		file    File
		want    string
		wantErr error
	}{
		{"csv declared", csvFile("a.csv", "text/csv", "name,code\nNorth,N1\n"), TypeCSV, nil},
		{"csv by extension", csvFile("a.CSV", "application/octet-stream", "name\nNorth\n"), TypeCSV, nil},
		{"csv declared as xls", csvFile("staff.csv", TypeXLS, "name,code\nCardio,C1\n"), TypeCSV, nil},
		{"text declared as xls without csv extension", csvFile("staff.xls", TypeXLS, "name,code\nCardio,C1\n"), "", ErrUnsupportedType},
		{"xlsx", File{Name: "a.xlsx", ContentType: TypeXLSX, Size: int64(len(x)), Body: bytes.NewReader(x)}, TypeXLSX, nil},
		{"pdf", csvFile("a.pdf", "application/pdf", "%PDF-1.4\n"), "", ErrUnsupportedType},
		{"disguised", csvFile("a.csv", "text/csv", "%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"), "", ErrUnsupportedType},
		{"too large", File{Name: "a.csv", ContentType: "text/csv", Size: DefaultMaxBytes + 1, Body: strings.NewReader("x")}, "", ErrTooLarge},
		{"empty", csvFile("a.csv", "text/csv", ""), "", ErrEmptyFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.file, 0)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestImport_RejectedFilesNeverUpload(t *testing.T) {
	e := NewEngine(16)
	up := &countingUploader{}

	_, err := e.Import(context.Background(), up, "s1/categories", "categories", csvFile("big.csv", "text/csv", strings.Repeat("a,b\n", 10)))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = e.Import(context.Background(), up, "s1/categories", "categories", csvFile("notes.txt", "text/plain", "hi"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	assert.Zero(t, up.calls.Load())
	assert.False(t, e.Importing("s1/categories"))
}

func TestImport_UploadsAndClearsFlag(t *testing.T) {
	e := NewEngine(0)
	key := "s1/centers"
	up := &countingUploader{res: models.ImportResult{ImportedCount: 3, SkippedCount: 1, Warnings: []string{"row 4: duplicate code"}}}
	up.during = func() { assert.True(t, e.Importing(key)) }

	res, err := e.Import(context.Background(), up, key, "centers", csvFile("c.csv", "", "name,code\nA,1\n"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), up.calls.Load())
	assert.Equal(t, TypeCSV, up.contentType)
	assert.Equal(t, "name,code\nA,1\n", up.body, "body rewound after sniffing")
	assert.True(t, res.HasWarnings())
	assert.Equal(t, "Imported 3, skipped 1.", Summary(res))
	assert.False(t, e.Importing(key))

	up.err = errors.New("backend down")
	up.during = nil
	_, err = e.Import(context.Background(), up, key, "centers", csvFile("c.csv", "", "name\nA\n"))
	require.Error(t, err)
	assert.False(t, e.Importing(key))
}

func TestImport_CSVDeclaredAsExcelUploads(t *testing.T) {
	up := &countingUploader{}
	_, err := NewEngine(0).Import(context.Background(), up, "s1/staff", "staff", csvFile("staff.csv", TypeXLS, "name,code\nCardio,C1\n"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), up.calls.Load())
	assert.Equal(t, TypeCSV, up.contentType)
}

func TestImport_BusyKey(t *testing.T) {
	e := NewEngine(0)
	key := "s1/ranks"
	up := &countingUploader{}
	up.during = func() {
		_, err := e.Import(context.Background(), &countingUploader{}, key, "ranks", csvFile("r.csv", "text/csv", "name\nA\n"))
		assert.ErrorIs(t, err, ErrBusy)
	}
	_, err := e.Import(context.Background(), up, key, "ranks", csvFile("r.csv", "text/csv", "name\nA\n"))
	require.NoError(t, err)
}

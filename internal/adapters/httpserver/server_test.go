package httpserver

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/phenrril/storeadmin/internal/adapters/repo/memory"
	"github.com/phenrril/storeadmin/internal/domain"
	"github.com/phenrril/storeadmin/internal/ingest"
	"github.com/phenrril/storeadmin/internal/usecase"
)

const xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func newTestServer(opts Options) (http.Handler, *memory.Store) {
	s := memory.New()
	ing := usecase.NewIngestUC(s, domain.TxOptions{}, nil)
	h := New(ing,
		&usecase.ProductUC{Products: s.Products()},
		&usecase.ClientUC{Clients: s.Clients()},
		&usecase.OrderUC{Orders: s.Orders()},
		s, opts)
	return h, s
}

func workbook(t *testing.T, rows map[ingest.Entity][]map[string]any) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, ingest.WriteWorkbook(&buf, ingest.DefaultLayout(), rows, false))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload/excel", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func literal() map[ingest.Entity][]map[string]any {
	return map[ingest.Entity][]map[string]any{
		ingest.EntityClient:    {{"nombre": "Ana", "correo": "ana@x.com", "pais": "CR"}},
		ingest.EntityProduct:   {{"sku": "P1", "nombre": "Widget", "categoria": "Tools"}},
		ingest.EntityOrder:     {{"correo": "ana@x.com", "canal": "WEB", "total": 50}},
		ingest.EntityOrderLine: {{"OrdenIndex": 1, "sku": "P1", "cantidad": 2, "precioUnit": 25}},
	}
}

func TestUploadExcel_Success(t *testing.T) {
	h, _ := newTestServer(Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "ventas.xlsx", xlsxType, workbook(t, literal())))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, map[string]any{
		"clientesInsertados":  float64(1),
		"productosInsertados": float64(1),
		"ordenesInsertadas":   float64(1),
		"detallesInsertados":  float64(1),
	}, out["stats"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestUploadExcel_StatusByKind(t *testing.T) {
	badRef := literal()
	badRef[ingest.EntityOrder][0]["correo"] = "otro@x.com"
	badValue := literal()
	badValue[ingest.EntityOrderLine][0]["descuento"] = 100.01

	other := excelize.NewFile()
	require.NoError(t, other.SetSheetName("Sheet1", "Datos"))
	otherBuf, err := other.WriteToBuffer()
	require.NoError(t, err)

	tests := []struct {
		name        string
		filename    string
		contentType string
		data        []byte
		code        int
	}{
		{"tipo no permitido", "ventas.csv", "text/csv", []byte("a,b"), http.StatusBadRequest},
		{"no es excel", "ventas.xlsx", xlsxType, []byte("no soy un zip"), http.StatusBadRequest},
		{"sin hojas reconocidas", "ventas.xlsx", xlsxType, otherBuf.Bytes(), http.StatusBadRequest},
		{"referencia inexistente", "ventas.xlsx", xlsxType, workbook(t, badRef), http.StatusUnprocessableEntity},
		{"descuento fuera de rango", "ventas.xlsx", "application/octet-stream", workbook(t, badValue), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, s := newTestServer(Options{})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, uploadRequest(t, tt.filename, tt.contentType, tt.data))

			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			out := decode(t, rec)
			assert.Equal(t, false, out["success"])
			assert.NotEmpty(t, out["error"])

			c, err := s.Counts(httptest.NewRequest(http.MethodGet, "/", nil).Context())
			require.NoError(t, err)
			assert.Equal(t, domain.EntityCounts{}, c)
		})
	}
}

func TestUploadExcel_ReferenceMessage(t *testing.T) {
	rows := literal()
	rows[ingest.EntityOrderLine][0]["sku"] = "P404"
	h, _ := newTestServer(Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "ventas.xlsx", xlsxType, workbook(t, rows)))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "Product with sku 'P404' not found")
}

func TestUploadExcel_MissingFile(t *testing.T) {
	h, _ := newTestServer(Options{})
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("otro", "x"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload/excel", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadExcel_TooLarge(t *testing.T) {
	h, _ := newTestServer(Options{MaxUploadBytes: 1024})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "ventas.xlsx", xlsxType, bytes.Repeat([]byte("x"), 4096)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadExcel_RateLimited(t *testing.T) {
	h, _ := newTestServer(Options{UploadPerMinute: 1})
	data := workbook(t, literal())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "a.xlsx", xlsxType, data))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "a.xlsx", xlsxType, data))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestUploadTemplate(t *testing.T) {
	h, _ := newTestServer(Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/upload/excel/template", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Cliente", "Producto", "Orden", "OrdenDetalle", "Instrucciones"}, f.GetSheetList())

	head, err := f.GetRows("OrdenDetalle")
	require.NoError(t, err)
	assert.Equal(t, []string{"OrdenIndex", "sku", "cantidad", "precioUnit", "descuento"}, head[0])
}

func TestQueryEndpoints(t *testing.T) {
	h, _ := newTestServer(Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "ventas.xlsx", xlsxType, workbook(t, literal())))
	require.Equal(t, http.StatusOK, rec.Code)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec = get("/api/orders")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, float64(1), out["total"])
	id := out["items"].([]any)[0].(map[string]any)["ID"].(string)

	rec = get("/api/orders/" + id)
	require.Equal(t, http.StatusOK, rec.Code)
	order := decode(t, rec)["order"].(map[string]any)
	assert.Len(t, order["Lines"], 1)

	assert.Equal(t, http.StatusBadRequest, get("/api/orders/no-uuid").Code)
	assert.Equal(t, http.StatusNotFound, get("/api/orders/00000000-0000-0000-0000-000000000001").Code)

	rec = get("/api/products?sku=P1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Widget", decode(t, rec)["product"].(map[string]any)["Name"])
	assert.Equal(t, http.StatusNotFound, get("/api/products?sku=NOPE").Code)

	rec = get("/api/clients?page=1&page_size=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["total"])

	rec = get("/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	counts := decode(t, rec)["counts"].(map[string]any)
	assert.Equal(t, float64(1), counts["order_lines"])
}

func TestUploadExcel_RejectsLegacyXLS(t *testing.T) {
	h, _ := newTestServer(Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "ventas.xls", "application/vnd.ms-excel", []byte{0xD0, 0xCF, 0x11, 0xE0}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "Formato .xls no soportado", out["message"])
	assert.Contains(t, out["error"], ".xlsx")
}

func TestUploadExcel_XLSXWithLegacyMIME(t *testing.T) {
	h, _ := newTestServer(Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "ventas.xlsx", "application/vnd.ms-excel", workbook(t, literal())))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"telemetry-mdb/internal/mdb"
	"telemetry-mdb/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError 按错误类型选择状态码
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, mdb.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrAbstractCommand):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, Fail(err.Error()))
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

// splitCSV 支持 type=a,b 与重复参数 type=a&type=b
func splitCSV(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// readBodyJSON 数字保留为 json.Number，避免整数在 float64 中丢失精度
func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBytes))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"telemetry-mdb/internal/mdb"
	"telemetry-mdb/internal/service"

	"go.uber.org/zap"
)

// Reloader 重新加载实例快照
type Reloader interface {
	Reload(ctx context.Context, instance string) (string, error)
}

// MdbHandler MDB 查询接口
type MdbHandler struct {
	svc       *service.MdbService
	registry  *service.Registry
	reloader  Reloader
	instances map[string]bool
	logger    *zap.Logger
}

func NewMdbHandler(svc *service.MdbService, registry *service.Registry, reloader Reloader, instances []string, logger *zap.Logger) *MdbHandler {
	allowed := make(map[string]bool, len(instances))
	for _, name := range instances {
		allowed[name] = true
	}
	return &MdbHandler{
		svc:       svc,
		registry:  registry,
		reloader:  reloader,
		instances: allowed,
		logger:    logger,
	}
}

// instanceInfo 实例及其当前快照
type instanceInfo struct {
	Name       string `json:"name"`
	SnapshotID string `json:"snapshotId,omitempty"`
	LoadedAt   string `json:"loadedAt,omitempty"`
	Parameters int    `json:"parameterCount"`
	Commands   int    `json:"commandCount"`
}

func (h *MdbHandler) ListInstances(w http.ResponseWriter, _ *http.Request) {
	names := h.registry.Instances()
	out := make([]instanceInfo, 0, len(names))
	for _, name := range names {
		snap, err := h.registry.Get(name)
		if err != nil {
			continue
		}
		out = append(out, instanceInfo{
			Name:       name,
			SnapshotID: snap.ID,
			LoadedAt:   snap.LoadedAt.Format(time.RFC3339),
			Parameters: len(snap.Parameters),
			Commands:   len(snap.Commands),
		})
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

func (h *MdbHandler) SpaceSystems(w http.ResponseWriter, _ *http.Request, instance string) {
	systems, err := h.svc.SpaceSystems(instance)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(systems))
}

func listOptions(r *http.Request) service.ListOptions {
	q := r.URL.Query()
	return service.ListOptions{
		System:        q.Get("system"),
		Query:         q.Get("q"),
		Types:         splitCSV(q["type"]),
		Source:        q.Get("source"),
		SearchMembers: parseBool(q.Get("searchMembers")),
		Pos:           parseInt(q.Get("pos"), 0),
		Limit:         parseInt(q.Get("limit"), 0),
		Next:          q.Get("next"),
	}
}

func (h *MdbHandler) ListParameters(w http.ResponseWriter, r *http.Request, instance string) {
	result, err := h.svc.ListParameters(instance, listOptions(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

// GetParameter name 可省略前导 '/'
func (h *MdbHandler) GetParameter(w http.ResponseWriter, _ *http.Request, instance, name string) {
	detail, err := h.svc.GetParameter(instance, name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(detail))
}

func (h *MdbHandler) ExportParameters(w http.ResponseWriter, r *http.Request, instance string) {
	data, err := h.svc.ExportParameters(instance, listOptions(r))
	if err != nil {
		h.logger.Error("Failed to export parameters",
			zap.String("instance", instance),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}
	filename := fmt.Sprintf("%s_parameters.xlsx", instance)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// batchGetRequest {"names": ["/YSS/SIMULATOR/Orbit.position[1]", ...]}
type batchGetRequest struct {
	Names []string `json:"names"`
}

func (h *MdbHandler) BatchGetParameters(w http.ResponseWriter, r *http.Request, instance string) {
	var req batchGetRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	entries, err := h.svc.BatchGetParameters(instance, req.Names)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(entries))
}

func (h *MdbHandler) ListCommands(w http.ResponseWriter, r *http.Request, instance string) {
	q := r.URL.Query()
	result, err := h.svc.ListCommands(instance, service.CommandListOptions{
		System:     q.Get("system"),
		Query:      q.Get("q"),
		NoAbstract: parseBool(q.Get("noAbstract")),
		Pos:        parseInt(q.Get("pos"), 0),
		Limit:      parseInt(q.Get("limit"), 0),
		Next:       q.Get("next"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

func (h *MdbHandler) GetCommand(w http.ResponseWriter, _ *http.Request, instance, name string) {
	cmd, err := h.svc.GetCommand(instance, name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(cmd))
}

// validateRequest {"arguments": {"name": {"value": ..., "hex": bool}}}
type validateRequest struct {
	Arguments map[string]service.ArgumentInput `json:"arguments"`
}

func (h *MdbHandler) ValidateArguments(w http.ResponseWriter, r *http.Request, instance, name string) {
	var req validateRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	result, err := h.svc.ValidateArguments(instance, name, req.Arguments)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

func (h *MdbHandler) Reload(w http.ResponseWriter, r *http.Request, instance string) {
	if !h.instances[instance] {
		writeError(w, fmt.Errorf("instance %s is not served: %w", instance, mdb.ErrNotFound))
		return
	}
	source, err := h.reloader.Reload(r.Context(), instance)
	if err != nil {
		h.logger.Error("Failed to reload mdb",
			zap.String("instance", instance),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}
	snap, err := h.registry.Get(instance)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"instance":   instance,
		"source":     source,
		"snapshotId": snap.ID,
	}))
}

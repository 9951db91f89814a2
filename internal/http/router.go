package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

const mdbPrefix = "/api/mdb/"

// RegisterMdbRoutes 注册 MDB 路由
//
//	GET  /api/mdb                                    实例列表
//	GET  /api/mdb/{instance}/space-systems
//	GET  /api/mdb/{instance}/parameters               列表（q/system/type/source/searchMembers/pos/limit/next）
//	POST /api/mdb/{instance}/parameters:batchGet      批量查询
//	GET  /api/mdb/{instance}/parameters/{name}        详情，name 可带偏移
//	GET  /api/mdb/{instance}/parameters-export        xlsx 导出（条件同列表）
//	GET  /api/mdb/{instance}/commands                 列表（q/system/noAbstract/pos/limit/next）
//	GET  /api/mdb/{instance}/commands/{name}
//	POST /api/mdb/{instance}/commands/{name}/validate 参数校验
//	POST /api/mdb/{instance}/reload                   重新加载快照
func (r *Router) RegisterMdbRoutes(h *MdbHandler) {
	r.Handle("/api/mdb", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListInstances(w, req)
	})

	r.Handle(mdbPrefix, func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, mdbPrefix)
		instance, resource, _ := strings.Cut(rest, "/")
		if instance == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		kind, name, _ := strings.Cut(resource, "/")

		switch {
		case kind == "space-systems" && name == "":
			if !allowMethod(w, req, http.MethodGet) {
				return
			}
			h.SpaceSystems(w, req, instance)
		case kind == "parameters" && name == "":
			if !allowMethod(w, req, http.MethodGet) {
				return
			}
			h.ListParameters(w, req, instance)
		case kind == "parameters:batchGet" && name == "":
			if !allowMethod(w, req, http.MethodPost) {
				return
			}
			h.BatchGetParameters(w, req, instance)
		case kind == "parameters":
			if !allowMethod(w, req, http.MethodGet) {
				return
			}
			h.GetParameter(w, req, instance, name)
		case kind == "parameters-export" && name == "":
			if !allowMethod(w, req, http.MethodGet) {
				return
			}
			h.ExportParameters(w, req, instance)
		case kind == "commands" && name == "":
			if !allowMethod(w, req, http.MethodGet) {
				return
			}
			h.ListCommands(w, req, instance)
		case kind == "commands" && strings.HasSuffix(name, "/validate"):
			if !allowMethod(w, req, http.MethodPost) {
				return
			}
			h.ValidateArguments(w, req, instance, strings.TrimSuffix(name, "/validate"))
		case kind == "commands" && name != "":
			if !allowMethod(w, req, http.MethodGet) {
				return
			}
			h.GetCommand(w, req, instance, name)
		case kind == "reload" && name == "":
			if !allowMethod(w, req, http.MethodPost) {
				return
			}
			h.Reload(w, req, instance)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func allowMethod(w http.ResponseWriter, req *http.Request, method string) bool {
	if req.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/classify-api/internal/model"
	"github.com/Brownie44l1/classify-api/internal/pipeline"
	"github.com/Brownie44l1/classify-api/internal/postprocess"
)

const maxTop = 20

// Classifier is the part of the pipeline the handlers use.
type Classifier interface {
	Classify(ctx context.Context, url string) (*pipeline.Result, error)
	Label(id int) (string, error)
}

type Handler struct {
	classifier Classifier
	logger     logrus.FieldLogger
}

type classifyRequest struct {
	Image string `json:"img"`
	Top   int    `json:"top"`
}

type classifyResponse struct {
	*model.PredictionResponse
	Top []model.Ranked `json:"top,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewHandler(classifier Classifier, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		classifier: classifier,
		logger:     logger,
	}
}

// Routes wires the endpoints behind a permissive CORS policy.
func (h *Handler) Routes() http.Handler {
	router := httprouter.New()
	router.GET("/health", h.Health)
	router.GET("/classify", h.Classify)
	router.POST("/classify", h.Classify)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Classify accepts ?img=<url>[&top=k] or a JSON body {"img": "<url>", "top": k}.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, err := decodeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.Image == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "pass an image url in the img parameter")
		return
	}
	if req.Top < 0 || req.Top > maxTop {
		writeError(w, http.StatusBadRequest, "bad_request", "top must be between 0 and "+strconv.Itoa(maxTop))
		return
	}

	result, err := h.classifier.Classify(r.Context(), req.Image)
	if err != nil {
		status, kind := statusFor(err)
		h.logger.WithError(err).WithField("status", status).Warn("classification failed")
		writeError(w, status, kind, err.Error())
		return
	}

	resp := classifyResponse{PredictionResponse: result.Response}
	for _, c := range postprocess.TopK(result.Probabilities, req.Top) {
		label, err := h.classifier.Label(c.ID)
		if err != nil {
			status, kind := statusFor(err)
			writeError(w, status, kind, err.Error())
			return
		}
		resp.Top = append(resp.Top, model.Ranked{Label: label, Confidence: c.Probability})
	}

	writeJSON(w, http.StatusOK, resp)
}

func decodeRequest(r *http.Request) (classifyRequest, error) {
	var req classifyRequest
	if r.Method == http.MethodPost {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			return req, errors.New("failed to read request body")
		}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return req, errors.New("invalid JSON")
			}
		}
	}

	q := r.URL.Query()
	if v := q.Get("img"); v != "" && req.Image == "" {
		req.Image = v
	}
	if v := q.Get("top"); v != "" && req.Top == 0 {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, errors.New("top must be an integer")
		}
		req.Top = n
	}
	return req, nil
}

// statusFor maps pipeline failures onto HTTP statuses. Bad images are the
// caller's problem; everything after preprocessing is ours.
func statusFor(err error) (int, string) {
	// Fetch wraps cancellation, so look for it before the kind.
	if errors.Is(err, context.Canceled) {
		return http.StatusRequestTimeout, "canceled"
	}
	switch kind := model.KindOf(err); kind {
	case model.ErrFetch, model.ErrShape:
		return http.StatusUnprocessableEntity, kind.Error()
	case nil:
		return http.StatusInternalServerError, "internal error"
	default:
		return http.StatusInternalServerError, kind.Error()
	}
}

// writeJSON encodes v before touching the header so an unencodable value
// becomes a 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: "internal error", Message: "failed to encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: kind, Message: message})
}

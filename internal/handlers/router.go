package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bot-inventory/internal/ledger"
	"bot-inventory/internal/metrics"
	"bot-inventory/internal/nlu"
	"bot-inventory/internal/repo"
)

const userIDKey = "user_id"

// Authenticator issues and resolves session tokens.
type Authenticator interface {
	Signup(ctx context.Context, name, email, password string) (string, *repo.User, error)
	Login(ctx context.Context, email, password string) (string, *repo.User, error)
	Authenticate(ctx context.Context, token string) (string, error)
	Logout(ctx context.Context, token string) error
}

// Ledger applies and reports inventory changes.
type Ledger interface {
	Apply(ctx context.Context, userID string, mut ledger.Mutation) (*ledger.Result, error)
	ApplyIntent(ctx context.Context, userID string, intent nlu.Intent) (*ledger.Result, error)
	ListProducts(ctx context.Context, userID, query string) ([]repo.Product, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]repo.Transaction, error)
	GetProfile(ctx context.Context, userID string) (*repo.Profile, error)
}

// Interpreter turns free text into an intent.
type Interpreter interface {
	Interpret(ctx context.Context, caller, text string) nlu.Outcome
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps wires the API.
type Deps struct {
	Auth        Authenticator
	Ledger      Ledger
	Interpreter Interpreter
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Health      map[string]HealthCheck
	Logger      *slog.Logger
}

// API holds the HTTP handlers.
type API struct {
	auth    Authenticator
	ledger  Ledger
	interp  Interpreter
	metrics *metrics.Metrics
	health  map[string]HealthCheck
	logger  *slog.Logger
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(deps Deps) *gin.Engine {
	api := &API{
		auth:    deps.Auth,
		ledger:  deps.Ledger,
		interp:  deps.Interpreter,
		metrics: deps.Metrics,
		health:  deps.Health,
		logger:  deps.Logger.With("component", "http"),
	}

	r := gin.New()
	r.Use(gin.Recovery(), api.observe())

	r.GET("/healthz", api.healthz)
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	authGroup := r.Group("/api/auth")
	authGroup.POST("/signup", api.signup)
	authGroup.POST("/login", api.login)
	authGroup.POST("/logout", api.requireAuth(), api.logout)

	protected := r.Group("/api", api.requireAuth())
	protected.GET("/products", api.listProducts)
	protected.POST("/products/add", api.addProduct)
	protected.POST("/products/sell", api.sellProduct)
	protected.GET("/transactions", api.listTransactions)
	protected.GET("/profile", api.profile)

	protected.POST("/voice", api.parseVoice)
	protected.POST("/voice/add", api.voiceMutation(nlu.ActionAdd))
	protected.POST("/voice/sell", api.voiceMutation(nlu.ActionSell))
	protected.POST("/voice/apply", api.applyVoice)

	return r
}

func (a *API) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		if a.metrics != nil {
			a.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		}
		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		a.logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (a *API) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortError(c, http.StatusUnauthorized, kindUnauthorized, "no token provided")
			return
		}
		userID, err := a.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			a.writeErr(c, err)
			c.Abort()
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

func (a *API) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	status := http.StatusOK
	for name, check := range a.health {
		if err := check(ctx); err != nil {
			a.logger.Warn("health check failed", "dependency", name, "error", err)
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}

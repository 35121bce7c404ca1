package handlers

import (
	"net/http"

	"github.com/LingByte/LingIVR/pkg/ivr"
	"github.com/gin-gonic/gin"
)

// RouterOptions wires the HTTP surface
type RouterOptions struct {
	Mode           string // gin mode: debug, release or test
	AllowedOrigins []string
	Provider       string

	Chatbot      *ChatbotHandler
	Calls        *CallHandler
	Orchestrator *ivr.Orchestrator
	// Signature guards the webhooks when set
	Signature *ivr.SignatureValidator
}

func NewRouter(opts RouterOptions) *gin.Engine {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}

	r := gin.New()
	// engine level so preflight requests reach it before routing
	r.Use(RequestID(), AccessLog(), Recovery(), CORS(opts.AllowedOrigins))

	r.GET("/health", Health(opts.Provider))

	api := r.Group("/api")
	{
		api.POST("/analyzeEmotion", AnalyzeEmotion)
		if opts.Chatbot != nil {
			api.POST("/chatbot", opts.Chatbot.Handle)
		}
		if opts.Calls != nil {
			api.POST("/makeCall", opts.Calls.MakeCall)
			api.GET("/calls/:callId", opts.Calls.GetCall)
		}
	}

	if opts.Orchestrator != nil {
		o := opts.Orchestrator
		r.POST(ivr.EntryPath, webhook(opts.Signature, o.HandleEntry))
		r.POST(ivr.CollectPath, webhook(opts.Signature, o.HandleCollect))
		r.POST(ivr.StatusPath, webhook(opts.Signature, o.HandleStatus))
	}
	return r
}

func webhook(v *ivr.SignatureValidator, h http.HandlerFunc) gin.HandlerFunc {
	if v != nil {
		h = v.Wrap(h)
	}
	return gin.WrapF(h)
}

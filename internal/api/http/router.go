package http

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/immxrtalbeast/axenix_meet/internal/roomcode"
)

type RouterConfig struct {
	AllowedOrigins []string
	SessionSecret  string
	SecureCookies  bool
	JoinPerMinute  int
	JoinBurst      int
}

var registerValidation sync.Once

func SetupRouter(
	cfg RouterConfig,
	log *slog.Logger,
	meetController *MeetController,
	roomController *RoomController,
	signalController *SignalController,
) *gin.Engine {
	registerValidation.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			if err := roomcode.RegisterValidation(v); err != nil {
				panic(err)
			}
		}
	})

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	config := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		config.AllowOrigins = cfg.AllowedOrigins
	} else {
		// no cross-origin callers configured, only the serving host
		config.AllowOriginWithContextFunc = func(ctx *gin.Context, origin string) bool {
			return sameHost(ctx.Request, origin)
		}
	}
	config.AllowCredentials = true
	config.AllowHeaders = []string{
		"Content-Type",
		"Origin",
		"Accept",
	}
	config.AllowMethods = []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"}
	router.Use(cors.New(config))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   60 * 60 * 24 * 30,
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(sessionName, store))

	router.SetHTMLTemplate(loadTemplates())

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	limitJoin := rateLimit(cfg.JoinPerMinute, cfg.JoinBurst)

	if meetController != nil {
		router.GET("/", meetController.Landing)
		router.POST("/meet/new", meetController.CreateMeeting)
		router.POST("/signin", meetController.SignIn)
		router.POST("/signin/dismiss", meetController.DismissSignIn)
		router.POST("/join", limitJoin, meetController.Join)
		router.GET("/meet/:code", meetController.Meeting)
		router.POST("/meet/:code/signin", meetController.MeetingSignIn)
	}

	if signalController != nil {
		router.GET("/meet/:code/ws", signalController.Connect)
	}

	api := router.Group("/api")

	if roomController != nil {
		rooms := api.Group("/rooms")
		rooms.GET("", roomController.ListRooms)
		rooms.POST("", roomController.CreateRoom)
		rooms.POST("/join", limitJoin, roomController.JoinRoom)
		rooms.GET("/:code", limitJoin, roomController.GetRoom)
		rooms.DELETE("/:code", roomController.CloseRoom)
		rooms.GET("/:code/watch", limitJoin, roomController.WatchRoom)
		if signalController != nil {
			rooms.GET("/:code/peers", signalController.ListPeers)
		}
	}

	return router
}

package api

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/rifaonline/rifa-api/docs"
	v1 "github.com/rifaonline/rifa-api/internal/api/handler/v1"
	"github.com/rifaonline/rifa-api/internal/api/live"
	"github.com/rifaonline/rifa-api/internal/api/middleware"
	"github.com/rifaonline/rifa-api/internal/config"
	"github.com/rifaonline/rifa-api/internal/pix"
	"github.com/rifaonline/rifa-api/internal/repository"
	"github.com/rifaonline/rifa-api/internal/repository/dao"
	"github.com/rifaonline/rifa-api/internal/service"
)

const maxBodyBytes = 8 << 20

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine
	Hub    *live.Hub

	// Payments is shared with the reservation sweeper.
	Payments *service.PaymentService

	raffles *service.RaffleService
	quotas  *service.QuotaService
	users   *service.UserService
}

type handlers struct {
	auth    *v1.AuthHandler
	user    *v1.UserHandler
	raffle  *v1.RaffleHandler
	admin   *v1.AdminHandler
	payment *v1.PaymentHandler
	live    *v1.LiveHandler
}

func NewServer(conf *config.AppConfig, db *gorm.DB, hub *live.Hub) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config: conf,
		Router: engine,
		Hub:    hub,
	}

	s.initServices(db)
	s.MountMiddlewares()

	s.MountHandlers(handlers{
		auth:    s.initAuthHandler(db),
		user:    v1.NewUserHandler(s.users),
		raffle:  s.initRaffleHandler(),
		admin:   s.initAdminHandler(),
		payment: v1.NewPaymentHandler(s.Payments),
		live:    v1.NewLiveHandler(s.raffles, s.Hub),
	})

	return s
}

func (s *Server) initServices(db *gorm.DB) {
	userRepo := repository.NewUserRepository(dao.NewUserDAO(db))
	raffleRepo := repository.NewRaffleRepository(dao.NewRaffleDAO(db))
	quotaRepo := repository.NewQuotaRepository(dao.NewQuotaDAO(db, repository.RaffleRules{}))
	reservationRepo := repository.NewReservationRepository(dao.NewReservationDAO(db))

	s.raffles = service.NewRaffleService(raffleRepo, reservationRepo)
	s.quotas = service.NewQuotaService(quotaRepo, raffleRepo, s.Hub, s.Config.Raffle.ReservationTTL, s.Config.Raffle.MaxQuotasPerOrder)
	s.users = service.NewUserService(userRepo, quotaRepo)

	gateway := pix.NewGateway(s.Config.Pix, s.Config.Raffle.ReservationTTL)
	s.Payments = service.NewPaymentService(s.quotas, reservationRepo, gateway)
}

func (s *Server) initAuthHandler(db *gorm.DB) *v1.AuthHandler {
	userDAO := dao.NewUserDAO(db)
	repo := repository.NewUserRepository(userDAO)
	svc := service.NewAuthService(repo, s.Config.API.AdminEmails)
	handler := v1.NewAuthHandler(s.Config.API, svc)

	return handler
}

func (s *Server) initRaffleHandler() *v1.RaffleHandler {
	return v1.NewRaffleHandler(s.raffles, s.quotas)
}

func (s *Server) initAdminHandler() *v1.AdminHandler {
	return v1.NewAdminHandler(s.initRaffleHandler(), s.quotas, s.users)
}

func (s *Server) MountMiddlewares() {
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.RequestLogger())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
	s.Router.Use(middleware.MaxBody(maxBodyBytes))
}

func (s *Server) MountHandlers(h handlers) {
	const basePath = "/api/v1"

	authenticator := middleware.NewAuthenticator(s.Config.API.JWTSigningKey)

	public := s.Router.Group(basePath)
	{
		public.POST("/auth/register", h.auth.HandleRegister)
		public.POST("/auth/login", h.auth.HandleLogin)

		public.GET("/raffles", h.raffle.HandleListRaffles)
		public.GET("/raffles/:raffleID", h.raffle.HandleGetRaffle)
		public.GET("/raffles/:raffleID/quotas", h.raffle.HandleListQuotas)
		public.GET("/raffles/:raffleID/live", h.live.HandleLive)
	}

	webhook := s.Router.Group(basePath, middleware.WebhookSecret(s.Config.API.WebhookSecret))
	{
		webhook.POST("/payment/webhook", h.payment.HandleWebhook)
	}

	users := s.Router.Group(basePath, authenticator.VerifyJWT())
	{
		users.GET("/users/me", h.user.HandleGetMe)
		users.GET("/user/my-numbers", h.user.HandleMyNumbers)
		users.POST("/payment/create-order", h.payment.HandleCreateOrder)
		users.GET("/payment/orders/:reference", h.payment.HandleGetOrder)
	}

	admin := s.Router.Group(basePath, authenticator.VerifyJWT(), middleware.RequireAdmin())
	{
		admin.POST("/raffles", h.raffle.HandleCreateRaffle)
		admin.PATCH("/raffles/:raffleID", h.raffle.HandleUpdateRaffle)
		admin.PATCH("/raffles/:raffleID/toggle", h.raffle.HandleToggleRaffle)
		admin.DELETE("/raffles/:raffleID", h.raffle.HandleDeleteRaffle)

		admin.GET("/admin/raffles", h.raffle.HandleAdminListRaffles)
		admin.POST("/admin/create-raffle", h.admin.HandleCreateRaffleForm)
		admin.POST("/admin/swap-quota", h.admin.HandleSwapQuota)
		admin.GET("/admin/raffles/:raffleID/stats", h.admin.HandleRaffleStats)
		admin.POST("/admin/raffles/:raffleID/release", h.admin.HandleReleaseQuotas)
		admin.GET("/admin/leads", h.admin.HandleListLeads)
		admin.GET("/admin/leads/:userID", h.admin.HandleGetLead)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "Rifa API"
	docs.SwaggerInfo.Description = "Online raffle sales: quotas, PIX orders and live availability."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}

package main

import (
	"context"
	"embed"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/adamgokit/mux"
	"github.com/adampresley/adamgokit/rendering"
	"github.com/adampresley/adamgokit/retrier"
	"github.com/adampresley/photoportfolio/cmd/website/internal/configuration"
	"github.com/adampresley/photoportfolio/cmd/website/internal/home"
	"github.com/adampresley/photoportfolio/cmd/website/internal/owner"
	"github.com/adampresley/photoportfolio/pkg/services"
	"github.com/gofrs/flock"
	"github.com/rfberaldo/sqlz"
)

var (
	Version string = "development"
	appName string = "photoportfolio"

	//go:embed app
	appFS embed.FS

	config configuration.Config

	/* Services */
	credentialService services.CredentialServicer
	db                *sqlz.DB
	galleryService    services.GalleryServicer
	imageService      services.ImageServicer
	profileService    services.ProfileServicer
	recordService     services.RecordServicer
	renderer          rendering.TemplateRenderer

	/* Controllers */
	homeController  home.HomeHandlers
	ownerController owner.OwnerController
)

func main() {
	var (
		err    error
		locked bool
	)

	config = configuration.LoadConfig()
	setupLogger(&config, Version)

	slog.Info("configuration loaded",
		slog.String("app", appName),
		slog.String("version", Version),
		slog.String("loglevel", config.LogLevel),
		slog.String("host", config.Host),
		slog.Bool("editMode", config.EditMode),
		slog.Int("maxImageWidth", config.MaxImageWidth),
		slog.Int("storageQuotaBytes", config.StorageQuotaBytes),
	)

	slog.Debug("setting up...")

	shutdownCtx, cancel := context.WithCancel(context.Background())

	/*
	 * Only one session may own the data at a time.
	 */
	if err = os.MkdirAll(filepath.Dir(config.LockFile), 0o755); err != nil {
		panic(err)
	}

	lock := flock.New(config.LockFile)

	if locked, err = lock.TryLock(); err != nil {
		panic(err)
	}

	if !locked {
		slog.Error("another session is already using this data. exiting", "lockFile", config.LockFile)
		os.Exit(1)
	}

	defer func() {
		_ = lock.Unlock()
	}()

	/*
	 * Setup services
	 */
	err = retrier.Retry(func() error {
		if db, err = services.ConnectDatabase(config.DSN); err != nil {
			slog.Error("failed to open database. trying again", "error", err)
			return err
		}

		return nil
	})

	if err != nil {
		panic(err)
	}

	if err = services.MigrateDatabase(db); err != nil {
		panic(err)
	}

	recordService = services.NewRecordService(services.RecordServiceConfig{
		DB:         db,
		QuotaBytes: int64(config.StorageQuotaBytes),
	})

	imageService = services.NewImageService(services.ImageServiceConfig{
		MaxUploadBytes:     int64(config.MaxUploadMB) << 20,
		MaxWidth:           uint(config.MaxImageWidth),
		Quality:            config.ImageQuality,
		ShutdownCtx:        shutdownCtx,
		UpscaleSmallImages: config.UpscaleSmallImages,
	})

	credentialService = services.NewCredentialService(services.CredentialServiceConfig{
		LockoutDuration:   time.Duration(config.LockoutSeconds) * time.Second,
		MaxFailedAttempts: config.MaxFailedLogins,
		RecordService:     recordService,
	})

	galleryService = services.NewGalleryService(services.GalleryServiceConfig{
		RecordService: recordService,
	})

	profileService = services.NewProfileService(services.ProfileServiceConfig{
		RecordService: recordService,
	})

	/*
	 * Hydrate in-memory state from the store. Missing records fall
	 * back to defaults.
	 */
	if err = galleryService.Hydrate(shutdownCtx); err != nil {
		slog.Error("error loading gallery, starting with an empty one", "error", err)
	}

	if err = profileService.Hydrate(shutdownCtx); err != nil {
		slog.Error("error loading profile, using the default", "error", err)
	}

	renderer, err = rendering.NewGoTemplateRenderer(rendering.GoTemplateRendererConfig{
		TemplateDir:       "app",
		TemplateExtension: ".html",
		TemplateFS:        appFS,
		PagesDir:          "pages",
	})

	if err != nil {
		panic(err)
	}

	/*
	 * Setup controllers
	 */
	homeController = home.NewHomeController(home.HomeControllerConfig{
		CredentialService: credentialService,
		EditRequested:     config.EditMode,
		GalleryService:    galleryService,
		ImageService:      imageService,
		ProfileService:    profileService,
		Renderer:          renderer,
	})

	ownerController = owner.NewOwnerController(owner.OwnerControllerConfig{
		CredentialService: credentialService,
		EditRequested:     config.EditMode,
		GalleryService:    galleryService,
		ImageService:      imageService,
		MaxUploadBytes:    int64(config.MaxUploadMB) << 20,
		ProfileService:    profileService,
		Renderer:          renderer,
	})

	/*
	 * Setup router and http server
	 */
	slog.Debug("setting up routes...")

	ownerAccessMiddleware := newOwnerAccessMiddleware(credentialService)
	ownerOnly := []mux.MiddlewareFunc{ownerAccessMiddleware}

	routes := []mux.Route{
		{Path: "GET /heartbeat", HandlerFunc: heartbeat},
		{Path: "GET /", HandlerFunc: homeController.HomePage},
		{Path: "POST /owner/setup", HandlerFunc: ownerController.SetupAction},
		{Path: "POST /owner/login", HandlerFunc: ownerController.LoginAction},
		{Path: "GET /owner/logout", HandlerFunc: ownerController.LogoutAction},
		{Path: "POST /owner/photos", HandlerFunc: ownerController.AddPhotoAction, Middlewares: ownerOnly},
		{Path: "POST /owner/photos/{id}/delete", HandlerFunc: ownerController.DeletePhotoAction, Middlewares: ownerOnly},
		{Path: "GET /owner/profile", HandlerFunc: ownerController.EditProfilePage, Middlewares: ownerOnly},
		{Path: "POST /owner/profile", HandlerFunc: ownerController.SaveProfileAction, Middlewares: ownerOnly},
		{Path: "POST /owner/profile/image", HandlerFunc: ownerController.UploadProfileImageAction, Middlewares: ownerOnly},
		{Path: "POST /owner/profile/discard", HandlerFunc: ownerController.DiscardProfileAction, Middlewares: ownerOnly},
	}

	routerConfig := mux.RouterConfig{
		Address:          config.Host,
		Debug:            Version == "development",
		HttpWriteTimeout: 60,
	}

	m := mux.SetupRouter(routerConfig, routes)
	httpServer, quit := mux.SetupServer(routerConfig, m)

	/*
	 * Wait for graceful shutdown
	 */
	slog.Info("server started")

	<-quit

	cancel()
	mux.Shutdown(httpServer)
	imageService.Stop()
	slog.Info("server stopped")
}

func heartbeat(w http.ResponseWriter, r *http.Request) {
	httphelpers.TextOK(w, "OK")
}

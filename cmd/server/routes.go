package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Luminet-Displays/luminet/internal/db"
	"github.com/Luminet-Displays/luminet/internal/dispatch"
	"github.com/Luminet-Displays/luminet/internal/http/api"
	adminapi "github.com/Luminet-Displays/luminet/internal/http/api/admin/endpoints"
	tvapi "github.com/Luminet-Displays/luminet/internal/http/api/tv/endpoints"
	"github.com/Luminet-Displays/luminet/internal/live"
	"github.com/Luminet-Displays/luminet/internal/registry"
	"github.com/Luminet-Displays/luminet/internal/storage"
	"github.com/Luminet-Displays/luminet/internal/ws"
)

// RegisterRoutes wires every HTTP and realtime surface onto the router.
func RegisterRoutes(
	r *gin.Engine,
	env Environment,
	store db.Store,
	uploads storage.Backend,
	reg *registry.Registry,
	hub *ws.Hub,
	engine *dispatch.Engine,
	coordinator *live.Coordinator,
) {
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			"Accept",
		},
		ExposeHeaders: []string{
			"Content-Length",
		},
		AllowCredentials: false,
	}))

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api/admin",
		Auth:   false,
	},
		&adminapi.AuthModule{Store: store, Secret: env.SecretKey},
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api/admin",
		Auth:      true,
		SecretKey: env.SecretKey,
		Store:     store,
	},
		&adminapi.ProfileModule{Store: store},
		&adminapi.DevicesModule{Store: store, Registry: reg},
		&adminapi.GroupsModule{Store: store},
		&adminapi.ContentModule{Store: store, Uploads: uploads},
		&adminapi.SchedulesModule{Store: store, Engine: engine},
		&adminapi.DisplayModule{Engine: engine},
		&adminapi.DaypartModule{Store: store},
		&adminapi.LiveModule{Store: store, Coordinator: coordinator, Sessions: hub},
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api/tv",
	},
		&tvapi.PairModule{Store: store},
	)

	// realtime: displays register here, dashboards connect with ?token=
	r.GET("/ws", hub.Serve)

	if !env.UseSpaces {
		r.Static("/uploads", "./uploads")
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Luminet-Displays/luminet/internal/daypart"
	"github.com/Luminet-Displays/luminet/internal/db"
	"github.com/Luminet-Displays/luminet/internal/dispatch"
	"github.com/Luminet-Displays/luminet/internal/live"
	"github.com/Luminet-Displays/luminet/internal/redis"
	"github.com/Luminet-Displays/luminet/internal/registry"
	"github.com/Luminet-Displays/luminet/internal/transport"
	"github.com/Luminet-Displays/luminet/internal/ws"
)

func main() {
	env := LoadEnvironment()

	if err := db.Init(env.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("db init failed")
	}
	if err := db.RunMigrations(env.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	redis.Init(env.RedisAddress, env.RedisUsername, env.RedisPassword)

	store := db.NewStore()
	uploads := InitStorage(env)

	reg := registry.New()
	hub := ws.NewHub(store, reg, env.SecretKey)

	// displays are reached over the websocket hub by default; with a
	// broker configured, device pushes go out over per-serial MQTT topics
	// and devices register through their status topics instead. Dashboard
	// traffic (viewer counts, ended notices, signalling) stays on the hub.
	var devicePusher transport.Pusher = hub
	if env.MQTTBrokerURL != "" {
		mqttPusher, err := transport.NewMQTTPusher(env.MQTTBrokerURL, "luminet-server")
		if err != nil {
			log.Fatal().Err(err).Msg("mqtt connect failed")
		}
		defer mqttPusher.Close()
		if err := mqttPusher.SubscribeStatus(store, reg); err != nil {
			log.Fatal().Err(err).Msg("mqtt status subscribe failed")
		}
		devicePusher = mqttPusher
		log.Info().Str("broker", env.MQTTBrokerURL).Msg("pushing device commands over mqtt")
	}

	coordinator := live.New(store, reg, devicePusher, hub)
	hub.AttachCoordinator(coordinator)

	engine := dispatch.New(store, reg, devicePusher)
	dayparts := daypart.New(store, reg, devicePusher)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go engine.Run(ctx)
	go dayparts.Run(ctx)

	r := gin.Default()
	RegisterRoutes(r, env, store, uploads, reg, hub, engine, coordinator)

	log.Info().Str("address", env.ServerAddress).Msg("listening")
	if err := r.Run(env.ServerAddress); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

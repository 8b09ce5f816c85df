package main

import (
	"github.com/rs/zerolog/log"

	"github.com/Luminet-Displays/luminet/internal/storage"
)

// InitStorage selects the configured upload backend.
func InitStorage(env Environment) storage.Backend {
	if env.UseSpaces {
		backend, err := storage.NewBucket(
			env.SpacesEndpoint,
			env.SpacesRegion,
			env.SpacesBucket,
			env.SpacesCDNURL,
			env.SpacesAccessKey,
			env.SpacesSecretKey,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize object storage")
		}
		log.Info().Str("cdn", env.SpacesCDNURL).Msg("using object storage for uploads")
		return backend
	}

	log.Info().Msg("using local file storage in ./uploads")
	return storage.NewLocal("./uploads", "/uploads")
}

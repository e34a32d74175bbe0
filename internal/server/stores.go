package server

import (
	"context"
	"fmt"

	"github.com/baymax-health/apiserver/config"
	"github.com/baymax-health/apiserver/internal/db"
	"github.com/baymax-health/apiserver/internal/services"
	"github.com/baymax-health/apiserver/internal/store"
	"github.com/baymax-health/apiserver/internal/store/memstore"
	"github.com/baymax-health/apiserver/internal/store/mongostore"
)

// Stores are the repositories of the backend selected by STORE_BACKEND.
type Stores struct {
	Users     services.UserRepository
	Medicines services.MedicineRepository
	Contacts  services.ContactRepository

	close func(context.Context) error
}

// Close releases the backend connection.
func (s Stores) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// OpenStores connects the persistence backend named by cfg.StoreBackend.
func OpenStores(ctx context.Context, cfg config.Config) (Stores, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres, "":
		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return Stores{}, err
		}
		return Stores{
			Users:     store.NewUserRepository(dbConn),
			Medicines: store.NewMedicineRepository(dbConn),
			Contacts:  store.NewContactRepository(dbConn),
			close:     func(context.Context) error { return dbConn.Close() },
		}, nil
	case config.BackendMongo:
		mongo, err := mongostore.Open(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return Stores{}, err
		}
		return Stores{
			Users:     mongo.Users(),
			Medicines: mongo.Medicines(),
			Contacts:  mongo.Contacts(),
			close:     mongo.Close,
		}, nil
	case config.BackendMemory:
		mem := memstore.New()
		return Stores{
			Users:     mem.Users(),
			Medicines: mem.Medicines(),
			Contacts:  mem.Contacts(),
		}, nil
	}
	return Stores{}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

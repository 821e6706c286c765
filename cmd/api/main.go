package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ruqsat.org/internal/audit"
	"ruqsat.org/internal/auth"
	"ruqsat.org/internal/httpapi"
	"ruqsat.org/internal/obs"
	"ruqsat.org/internal/org"
	"ruqsat.org/internal/pass"
	"ruqsat.org/internal/store/pg"
)

var version = "0.3.0"

func main() {
	obs.Init()

	var (
		db    *sql.DB
		store pass.Store
		notes pass.NotificationStore
		dir   auth.Directory
		units org.UnitStore
		sink  pass.AuditSink
	)

	if dsn := os.Getenv("RUQSAT_PG_DSN"); dsn != "" {
		pgStore, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db = pgStore.DB()
		store = pgStore
		notes = pgStore
		dir = pgStore
		units = pgStore
		sink = pgStore.AuditSink()
	} else {
		// Without a DSN the service runs fully in memory with demo accounts.
		// Meant for local development only.
		log.Println("RUQSAT_PG_DSN is empty, using in-memory store with demo users")
		mem, memDir, memUnits := devFixtures()
		store = mem
		notes = mem
		dir = memDir
		units = memUnits
		sink = audit.LogSink{}
	}

	resolver := org.NewResolver(units)
	svc := pass.NewService(store, notes, dir, resolver, sink)

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, svc, dir)
	handler := httpapi.MaxBodyBytes(httpapi.RateLimit(api.Handler(), 50, 25), 1<<20)

	addr := os.Getenv("RUQSAT_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting ruqsat-api %s on %s", version, srv.Addr)
	obs.SetReady(true)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	obs.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

// devFixtures seeds the in-memory backends with the same reference data the
// SQL seeds provide. All demo accounts use the password "password".
func devFixtures() (*pass.InMemory, *auth.InMemoryDirectory, *org.InMemoryUnits) {
	store := pass.NewInMemory()
	store.SeedCheckpoint(pass.Checkpoint{ID: 1, Code: "KPP-1", Name: "Main gate"})
	store.SeedCheckpoint(pass.Checkpoint{ID: 2, Code: "KPP-2", Name: "Cargo gate"})
	store.SeedCheckpoint(pass.Checkpoint{ID: 3, Code: "KPP-3", Name: "North entrance"})

	units := org.NewInMemoryUnits(
		org.Unit{ID: "hq", Name: "Head Office", Kind: org.KindCompany},
		org.Unit{ID: "dep1", Name: "Security Department", ParentID: "hq", Kind: org.KindDepartment},
		org.Unit{ID: "dep2", Name: "Operations Department", ParentID: "hq", Kind: org.KindDepartment},
		org.Unit{ID: "div1", Name: "Facilities Division", ParentID: "dep2", Kind: org.KindDivision},
		org.Unit{ID: "unit1", Name: "Maintenance Unit", ParentID: "div1", Kind: org.KindUnit},
	)

	hash, err := auth.HashPassword("password")
	if err != nil {
		log.Fatalf("hash demo password: %v", err)
	}
	dir := auth.NewInMemoryDirectory()
	for _, u := range []auth.User{
		{ID: "u-admin", Username: "admin", FullName: "System Administrator", RoleCode: auth.RoleCodeAdmin, Active: true, PasswordHash: hash},
		{ID: "u-usb", Username: "usb1", FullName: "USB Officer", RoleCode: auth.RoleCodeUSBOfficer, UnitID: "dep1", Active: true, PasswordHash: hash},
		{ID: "u-as", Username: "as1", FullName: "AS Officer", RoleCode: auth.RoleCodeASOfficer, UnitID: "dep2", Active: true, PasswordHash: hash},
		{ID: "u-head", Username: "dephead", FullName: "Department Head", RoleCode: auth.RoleCodeDepartmentHead, UnitID: "dep2", Active: true, PasswordHash: hash},
		{ID: "u-unit", Username: "unithead", FullName: "Unit Head", RoleCode: auth.RoleCodeUnitHead, UnitID: "div1", Active: true, PasswordHash: hash},
		{ID: "u-op1", Username: "gate1", FullName: "Gate Operator", RoleCode: auth.CheckpointRoleCode(1), Active: true, PasswordHash: hash},
	} {
		dir.SeedUser(u)
	}
	return store, dir, units
}

// Command smoke drives a full approval round trip against an in-memory
// service and exits non-zero on the first broken invariant. Useful as a quick
// sanity check after refactoring without a database or HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"ruqsat.org/internal/audit"
	"ruqsat.org/internal/auth"
	"ruqsat.org/internal/org"
	"ruqsat.org/internal/pass"
)

func main() {
	log.SetFlags(0)
	ctx := context.Background()

	store := pass.NewInMemory()
	store.SeedCheckpoint(pass.Checkpoint{ID: 1, Code: "KPP-1", Name: "Main gate"})

	dir := auth.NewInMemoryDirectory()
	users := map[string]string{
		"creator": auth.RoleCodeDepartmentHead,
		"usb":     auth.RoleCodeUSBOfficer,
		"as":      auth.RoleCodeASOfficer,
		"op":      auth.CheckpointRoleCode(1),
	}
	for id, role := range users {
		dir.SeedUser(auth.User{ID: id, Username: id, FullName: id, RoleCode: role, UnitID: "div1", Active: true})
	}

	units := org.NewInMemoryUnits(
		org.Unit{ID: "hq", Name: "Head Office", Kind: org.KindCompany},
		org.Unit{ID: "div1", Name: "Facilities Division", ParentID: "hq", Kind: org.KindDivision},
	)
	svc := pass.NewService(store, store, dir, org.NewResolver(units), audit.LogSink{})

	principal := func(id string) auth.Principal {
		return auth.NewPrincipal(id, users[id], "div1", true)
	}

	now := time.Now().UTC()
	req, err := svc.CreateRequest(ctx, principal("creator"), pass.RequestDraft{
		Duration:      pass.DurationLongTerm,
		Purpose:       "smoke",
		StartDate:     now,
		EndDate:       now.Add(30 * 24 * time.Hour),
		CheckpointIDs: []int64{1},
		Persons: []pass.PersonDraft{
			{FullName: "Smoke One", Nationality: pass.NationalityLocal},
			{FullName: "Smoke Two", Nationality: pass.NationalityForeign},
		},
	})
	if err != nil {
		log.Fatalf("create: %v", err)
	}
	expect(req.Status, pass.StatusPendingUSB, "routing")

	for _, p := range req.Persons {
		if _, err := svc.ApprovePerson(ctx, principal("usb"), p.ID); err != nil {
			log.Fatalf("usb approve %s: %v", p.ID, err)
		}
	}
	req = mustGet(ctx, svc, principal("usb"), req.ID)
	expect(req.Status, pass.StatusApprovedUSB, "usb finalization")

	for _, p := range req.Persons {
		if _, err := svc.ApprovePerson(ctx, principal("as"), p.ID); err != nil {
			log.Fatalf("as approve %s: %v", p.ID, err)
		}
	}
	req = mustGet(ctx, svc, principal("as"), req.ID)
	expect(req.Status, pass.StatusApprovedAS, "as finalization")

	if _, err := svc.MarkIssued(ctx, principal("op"), req.ID); err != nil {
		log.Fatalf("issue: %v", err)
	}
	if _, err := svc.CloseRequest(ctx, principal("op"), req.ID); err != nil {
		log.Fatalf("close: %v", err)
	}
	req = mustGet(ctx, svc, principal("creator"), req.ID)
	expect(req.Status, pass.StatusClosed, "close")

	fmt.Println("smoke OK: create -> USB -> AS -> issue -> close")
}

func mustGet(ctx context.Context, svc *pass.Service, p auth.Principal, id string) *pass.Request {
	req, err := svc.GetRequest(ctx, p, id)
	if err != nil {
		log.Fatalf("get %s: %v", id, err)
	}
	return req
}

func expect(got, want pass.Status, step string) {
	if got != want {
		log.Fatalf("%s: status %s, want %s", step, got, want)
	}
}

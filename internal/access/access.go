// Package access centralizes visibility and action rules for protocols.
// Role-based branching lives here, not in handlers or the lifecycle engine.
package access

import (
	"sipro/internal/protocol/models"
	"sipro/pkg/domain"
)

// Actor is the authenticated principal performing an operation.
type Actor struct {
	UserID   domain.UserID
	Role     domain.Role
	SectorID domain.SectorID
}

// CanView reports whether the actor may read a protocol. Admins and
// operators see everything; everyone else sees protocols they created or
// that touch their sector as origin or destination.
func CanView(actor Actor, p *models.Protocol) bool {
	if actor.Role.Privileged() {
		return true
	}
	if actor.UserID == p.CreatorID {
		return true
	}
	return actor.SectorID == p.DestinationSectorID || actor.SectorID == p.OriginSectorID
}

// CanReceive reports whether the actor may confirm receipt. Custody belongs
// to the destination sector; admins and operators may act for any sector.
func CanReceive(actor Actor, p *models.Protocol) bool {
	if actor.Role.Privileged() {
		return true
	}
	return actor.SectorID == p.DestinationSectorID
}

// CanRoute reports whether the actor may route the protocol onward. Sector
// ownership only: the received-status gate is a state rule, enforced by the
// lifecycle engine for every role including admin.
func CanRoute(actor Actor, p *models.Protocol) bool {
	if actor.Role.Privileged() {
		return true
	}
	return actor.SectorID == p.DestinationSectorID
}

// CanArchive reports whether the actor may archive or unarchive.
func CanArchive(actor Actor, p *models.Protocol) bool {
	if actor.Role.Privileged() {
		return true
	}
	return actor.UserID == p.CreatorID
}

// CanDelete reports whether the actor may delete the protocol. Admins may
// delete anything; others only their own protocols, and only while no
// receipt has ever been confirmed.
func CanDelete(actor Actor, p *models.Protocol) bool {
	if actor.Role == domain.RoleAdmin {
		return true
	}
	return actor.UserID == p.CreatorID && !p.WasReceived()
}

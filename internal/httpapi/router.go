package httpapi

import (
	"github.com/gorilla/mux"

	"github.com/foxford/eventd/internal/adjust"
	"github.com/foxford/eventd/internal/commit"
	adminstorage "github.com/foxford/eventd/internal/admission/storage"
	editionstorage "github.com/foxford/eventd/internal/edition/storage"
	eventstorage "github.com/foxford/eventd/internal/eventstore/storage"
	"github.com/foxford/eventd/internal/notify"
	"github.com/foxford/eventd/internal/objectstore"
	roomstorage "github.com/foxford/eventd/internal/roomregistry/storage"
	"github.com/foxford/eventd/internal/statequery"
)

// Deps collects every collaborator the route handlers need. It is the
// HTTP-layer analogue of a dendrite API struct: a flat bag of already-wired
// ports, built once in cmd/eventd/main.go.
type Deps struct {
	Rooms       roomstorage.Database
	Events      eventstorage.Database
	Admission   adminstorage.Database
	Editions    editionstorage.Database
	StateQuery  *statequery.Engine
	Adjust      *adjust.Engine
	Commit      *commit.Engine
	Outbox      *notify.Outbox
	ObjectStore objectstore.Store

	MaxPayloadBytes int
	RateLimiter     *RateLimiter
}

// NewRouter builds the full spec.md §6 HTTP surface over deps.
func NewRouter(deps *Deps) *mux.Router {
	r := mux.NewRouter()
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.Middleware)
	}

	r.Handle("/rooms", wrap("create_room", deps.createRoom)).Methods("POST")
	r.Handle("/rooms/{room_id}", wrap("read_room", deps.readRoom)).Methods("GET")
	r.Handle("/rooms/{room_id}", wrap("update_room", deps.updateRoom)).Methods("PATCH")
	r.Handle("/rooms/{room_id}/adjust", wrap("adjust_room", deps.adjustRoom)).Methods("POST")
	r.Handle("/rooms/{room_id}/enter", wrap("enter_room", deps.enterRoom)).Methods("POST")
	r.Handle("/rooms/{room_id}/locked_types", wrap("locked_types", deps.lockedTypes)).Methods("POST")
	r.Handle("/rooms/{room_id}/whiteboard_access", wrap("whiteboard_access", deps.whiteboardAccess)).Methods("POST")
	r.Handle("/rooms/{room_id}/dump_events", wrap("dump_events", deps.dumpEvents)).Methods("POST")
	r.Handle("/rooms/{room_id}/events", wrap("list_events", deps.listEvents)).Methods("GET")
	r.Handle("/rooms/{room_id}/events", wrap("create_event", deps.createEvent)).Methods("POST")
	r.Handle("/rooms/{room_id}/state", wrap("read_state", deps.readState)).Methods("GET")
	r.Handle("/rooms/{room_id}/agents", wrap("list_agents", deps.listAgents)).Methods("GET")
	r.Handle("/rooms/{room_id}/agents", wrap("update_agents", deps.updateAgents)).Methods("PATCH")
	r.Handle("/rooms/{room_id}/bans", wrap("list_bans", deps.listBans)).Methods("GET")
	r.Handle("/rooms/{room_id}/editions", wrap("list_editions", deps.listEditions)).Methods("GET")
	r.Handle("/rooms/{room_id}/editions", wrap("create_edition", deps.createEdition)).Methods("POST")
	r.Handle("/editions/{edition_id}", wrap("delete_edition", deps.deleteEdition)).Methods("DELETE")
	r.Handle("/editions/{edition_id}/commit", wrap("commit_edition", deps.commitEdition)).Methods("POST")
	r.Handle("/editions/{edition_id}/changes", wrap("list_changes", deps.listChanges)).Methods("GET")
	r.Handle("/editions/{edition_id}/changes", wrap("create_change", deps.createChange)).Methods("POST")
	r.Handle("/changes/{change_id}", wrap("delete_change", deps.deleteChange)).Methods("DELETE")

	return r
}

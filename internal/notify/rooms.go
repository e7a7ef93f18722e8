package notify

import (
	userdomain "comanda/backend/internal/user/domain"
)

// Room identifies a broadcast audience. Rooms are typed values built here,
// never concatenated ad hoc at call sites.
type Room string

const (
	RoomGlobal  Room = "global"
	RoomCooks   Room = "cooks"
	RoomWaiters Room = "waiters"
	RoomAdmins  Room = "administrators"
)

// UserRoom is the private room of a single user.
func UserRoom(userID string) Room { return Room("user:" + userID) }

// OrderRoom scopes events to one order's lifecycle.
func OrderRoom(orderID string) Room { return Room("order:" + orderID) }

// RoomsForRole returns the rooms a connection joins at handshake, derived
// deterministically from the user's role. Administrators see everything.
// Unrecognized roles get the global room only.
func RoomsForRole(role userdomain.Role, userID string) []Room {
	rooms := []Room{RoomGlobal}
	switch role {
	case userdomain.RoleCook:
		rooms = append(rooms, RoomCooks)
	case userdomain.RoleWaiter:
		rooms = append(rooms, RoomWaiters)
	case userdomain.RoleAdmin:
		rooms = append(rooms, RoomAdmins, RoomCooks, RoomWaiters)
	}
	return append(rooms, UserRoom(userID))
}

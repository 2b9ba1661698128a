package domain

const MaxRoomNameLen = 36

type RoomName string

// CleanRoomName truncates overlong names; rooms are created lazily on first
// reference, so there is no not-found case to report.
func CleanRoomName(raw string) RoomName {
	if len(raw) > MaxRoomNameLen {
		raw = raw[:MaxRoomNameLen]
	}
	return RoomName(raw)
}

package feed

import "github.com/google/uuid"

// IdentityTopic fires on sign-in, sign-out, token refresh and any change to
// the auth account.
func IdentityTopic(uid uuid.UUID) string {
	return "identity:" + uid.String()
}

func UserTopic(uid uuid.UUID) string {
	return "user:" + uid.String()
}

func ChatListTopic(uid uuid.UUID) string {
	return "chats:" + uid.String()
}

func ChatTopic(chatID uuid.UUID) string {
	return "chat:" + chatID.String()
}

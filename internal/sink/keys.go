package sink

// IdxKey returns the feature index key for one connection's record.
func IdxKey(origin, clientID, connectionID string) []byte {
	k := make([]byte, 0, 4+len(origin)+1+len(clientID)+1+len(connectionID))
	k = append(k, "idx/"...)
	k = append(k, origin...)
	k = append(k, '/')
	k = append(k, clientID...)
	k = append(k, '/')
	k = append(k, connectionID...)
	return k
}

// BlobKey returns the raw dump key for a session.
func BlobKey(clientID string) []byte {
	k := make([]byte, 0, 5+len(clientID))
	k = append(k, "blob/"...)
	k = append(k, clientID...)
	return k
}

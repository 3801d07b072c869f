package users

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func decodeUserDocument(t *testing.T, raw bson.M) userDocument {
	t.Helper()
	data, err := bson.Marshal(raw)
	require.NoError(t, err)
	var doc userDocument
	require.NoError(t, bson.Unmarshal(data, &doc))
	return doc
}

func TestUserDocumentWithoutIDGetsStableID(t *testing.T) {
	raw := bson.M{"uid": "u1", "name": "Ann", "email": "ann@x.com", "picture": "p.png", "__v": 0}

	first, err := decodeUserDocument(t, raw).toUser()
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, first.ID)
	require.Equal(t, "u1", first.SubjectID)
	require.Equal(t, "Ann", first.Name)
	require.Equal(t, "ann@x.com", first.Email)
	require.Equal(t, "p.png", first.PictureURL)
	require.True(t, first.CreatedAt.IsZero())

	second, err := decodeUserDocument(t, raw).toUser()
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	other, err := decodeUserDocument(t, bson.M{"uid": "u2"}).toUser()
	require.NoError(t, err)
	require.NotEqual(t, first.ID, other.ID)
}

func TestUserDocumentKeepsStoredID(t *testing.T) {
	id := uuid.New()
	user, err := decodeUserDocument(t, bson.M{"id": id.String(), "uid": "u1"}).toUser()
	require.NoError(t, err)
	require.Equal(t, id, user.ID)
}

func TestUserDocumentRejectsMalformedID(t *testing.T) {
	_, err := decodeUserDocument(t, bson.M{"id": "not-a-uuid", "uid": "u1"}).toUser()
	require.Error(t, err)
}

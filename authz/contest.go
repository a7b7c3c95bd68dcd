package authz

import "context"

// Обертки над базовыми операциями клиента для конкурсных relation-ов.

// MemberRelation — пара (пользователь, роль) для записи в store.
type MemberRelation struct {
	UserID   string
	Relation string
}

// AddContestMembers записывает role-relation-ы пользователей на конкурс и
// возвращает токен консистентности записи.
func AddContestMembers(ctx context.Context, client Client, contestID string, relations []MemberRelation) (string, error) {
	return client.WriteRelationships(ctx, "contest", contestID, toUpdates(relations), OperationCreate)
}

// RemoveContestMembers удаляет role-relation-ы пользователей с конкурса.
func RemoveContestMembers(ctx context.Context, client Client, contestID string, relations []MemberRelation) (string, error) {
	return client.WriteRelationships(ctx, "contest", contestID, toUpdates(relations), OperationDelete)
}

// GetContestMembers возвращает поток участников конкурса,
// опционально отфильтрованный по роли.
func GetContestMembers(ctx context.Context, client Client, contestID, role string) (*RelationshipStream, error) {
	return client.ReadRelationships(ctx, RelationshipFilter{
		ResourceType: "contest",
		ResourceID:   contestID,
		SubjectType:  "user",
		Relation:     role,
	})
}

// GetContestIDsByUser возвращает идентификаторы конкурсов, на которых у
// пользователя есть хоть какой-то relation.
func GetContestIDsByUser(ctx context.Context, client Client, userID string) ([]string, error) {
	stream, err := client.ReadRelationships(ctx, RelationshipFilter{
		ResourceType: "contest",
		SubjectType:  "user",
		SubjectID:    userID,
	})
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	seen := make(map[string]struct{})
	var ids []string
	for stream.Next() {
		id := stream.Relationship().ResourceID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetRelation возвращает текущую роль пользователя на конкурсе,
// либо пустую строку, если relation-а нет.
func GetRelation(ctx context.Context, client Client, userID, contestID string) (string, error) {
	stream, err := client.ReadRelationships(ctx, RelationshipFilter{
		ResourceType: "contest",
		ResourceID:   contestID,
		SubjectType:  "user",
		SubjectID:    userID,
	})
	if err != nil {
		return "", err
	}
	defer stream.Close()

	// Схема не запрещает несколько relation-ов на пару (конкурс, пользователь);
	// как и раньше, берем первый.
	if stream.Next() {
		rel := stream.Relationship().Relation
		// Дочитывать остаток не нужно, поток закроется deferred Close.
		return rel, stream.Err()
	}
	return "", stream.Err()
}

func toUpdates(relations []MemberRelation) []RelationshipUpdate {
	updates := make([]RelationshipUpdate, 0, len(relations))
	for _, r := range relations {
		updates = append(updates, RelationshipUpdate{SubjectID: r.UserID, Relation: r.Relation})
	}
	return updates
}

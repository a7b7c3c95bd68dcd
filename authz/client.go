package authz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Namespace — префикс типов объектов в схеме relationship store.
const Namespace = "titlescore"

// Operation — операция над relation-ами при записи.
type Operation string

const (
	OperationCreate Operation = "OPERATION_CREATE"
	OperationDelete Operation = "OPERATION_DELETE"
)

// RelationshipUpdate — одна запись (subject, relation) для WriteRelationships.
type RelationshipUpdate struct {
	SubjectID string
	Relation  string
}

// RelationshipFilter ограничивает выборку ReadRelationships.
// Пустые поля не фильтруют.
type RelationshipFilter struct {
	ResourceType string
	ResourceID   string
	SubjectType  string
	SubjectID    string
	Relation     string
}

// CheckResult — результат проверки права.
// Granted == nil означает PERMISSIONSHIP_UNSPECIFIED; вызывающие обязаны
// трактовать nil так же, как false (отказ).
type CheckResult struct {
	Granted          *bool
	ConsistencyToken string
}

// Client — типизированная обертка над relationship store.
// Все чтения выполняются в режиме fullyConsistent: проверка ролей всегда
// видит последние записи ценой дополнительной задержки.
type Client interface {
	CheckPermission(ctx context.Context, subjectID, resourceType, resourceID, permission string) (*CheckResult, error)
	WriteRelationships(ctx context.Context, resourceType, resourceID string, updates []RelationshipUpdate, op Operation) (string, error)
	ReadRelationships(ctx context.Context, filter RelationshipFilter) (*RelationshipStream, error)
}

type httpClient struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewHTTPClient создает клиент HTTP-шлюза relationship store.
func NewHTTPClient(endpoint, token string) Client {
	return &httpClient{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		token:    token,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Структуры запросов/ответов повторяют JSON API шлюза (v1).

type objectRef struct {
	ObjectType string `json:"objectType"`
	ObjectID   string `json:"objectId"`
}

type subjectRef struct {
	Object objectRef `json:"object"`
}

type wireRelationship struct {
	Resource objectRef  `json:"resource"`
	Relation string     `json:"relation"`
	Subject  subjectRef `json:"subject"`
}

type consistency struct {
	FullyConsistent bool `json:"fullyConsistent"`
}

type tokenRef struct {
	Token string `json:"token"`
}

type checkPermissionRequest struct {
	Subject     subjectRef  `json:"subject"`
	Resource    objectRef   `json:"resource"`
	Permission  string      `json:"permission"`
	Consistency consistency `json:"consistency"`
}

type checkPermissionResponse struct {
	CheckedAt      tokenRef `json:"checkedAt"`
	Permissionship string   `json:"permissionship"`
}

type relationshipUpdateRequest struct {
	Operation    Operation        `json:"operation"`
	Relationship wireRelationship `json:"relationship"`
}

type writeRelationshipsRequest struct {
	Updates []relationshipUpdateRequest `json:"updates"`
}

type writeRelationshipsResponse struct {
	WrittenAt tokenRef `json:"writtenAt"`
}

type subjectFilter struct {
	SubjectType       string `json:"subjectType"`
	OptionalSubjectID string `json:"optionalSubjectId,omitempty"`
}

type relationshipFilterRequest struct {
	ResourceType          string         `json:"resourceType"`
	OptionalResourceID    string         `json:"optionalResourceId,omitempty"`
	OptionalSubjectFilter *subjectFilter `json:"optionalSubjectFilter,omitempty"`
	OptionalRelation      string         `json:"optionalRelation,omitempty"`
}

type readRelationshipsRequest struct {
	RelationshipFilter relationshipFilterRequest `json:"relationshipFilter"`
	Consistency        consistency               `json:"consistency"`
}

type wireError struct {
	Code    json.Number `json:"code"`
	Message string      `json:"message"`
}

// ObjectType собирает полное имя типа с префиксом namespace.
func ObjectType(resourceType string) string {
	return Namespace + "/" + resourceType
}

func (c *httpClient) CheckPermission(ctx context.Context, subjectID, resourceType, resourceID, permission string) (*CheckResult, error) {
	req := checkPermissionRequest{
		Subject: subjectRef{Object: objectRef{
			ObjectType: ObjectType("user"),
			ObjectID:   subjectID,
		}},
		Resource: objectRef{
			ObjectType: ObjectType(resourceType),
			ObjectID:   resourceID,
		},
		Permission:  permission,
		Consistency: consistency{FullyConsistent: true},
	}

	var resp checkPermissionResponse
	if err := c.post(ctx, "v1/permissions/check", req, &resp); err != nil {
		return nil, err
	}

	result := &CheckResult{ConsistencyToken: resp.CheckedAt.Token}
	switch resp.Permissionship {
	case "PERMISSIONSHIP_HAS_PERMISSION":
		granted := true
		result.Granted = &granted
	case "PERMISSIONSHIP_NO_PERMISSION":
		granted := false
		result.Granted = &granted
	default:
		// PERMISSIONSHIP_UNSPECIFIED (или неизвестное значение) — Granted остается nil.
	}
	return result, nil
}

func (c *httpClient) WriteRelationships(ctx context.Context, resourceType, resourceID string, updates []RelationshipUpdate, op Operation) (string, error) {
	req := writeRelationshipsRequest{}
	for _, u := range updates {
		req.Updates = append(req.Updates, relationshipUpdateRequest{
			Operation: op,
			Relationship: wireRelationship{
				Resource: objectRef{
					ObjectType: ObjectType(resourceType),
					ObjectID:   resourceID,
				},
				Relation: u.Relation,
				Subject: subjectRef{Object: objectRef{
					ObjectType: ObjectType("user"),
					ObjectID:   u.SubjectID,
				}},
			},
		})
	}

	var resp writeRelationshipsResponse
	if err := c.post(ctx, "v1/relationships/write", req, &resp); err != nil {
		return "", err
	}
	return resp.WrittenAt.Token, nil
}

func (c *httpClient) ReadRelationships(ctx context.Context, filter RelationshipFilter) (*RelationshipStream, error) {
	req := readRelationshipsRequest{
		RelationshipFilter: relationshipFilterRequest{
			ResourceType:       ObjectType(filter.ResourceType),
			OptionalResourceID: filter.ResourceID,
			OptionalRelation:   filter.Relation,
		},
		Consistency: consistency{FullyConsistent: true},
	}
	if filter.SubjectType != "" || filter.SubjectID != "" {
		subjectType := filter.SubjectType
		if subjectType == "" {
			subjectType = "user"
		}
		req.RelationshipFilter.OptionalSubjectFilter = &subjectFilter{
			SubjectType:       ObjectType(subjectType),
			OptionalSubjectID: filter.SubjectID,
		}
	}

	httpResp, err := c.do(ctx, "v1/relationships/read", req)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		return nil, responseError(httpResp)
	}

	return NewRelationshipStream(httpResp.Body), nil
}

func (c *httpClient) post(ctx context.Context, path string, body, out interface{}) error {
	resp, err := c.do(ctx, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (c *httpClient) do(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/"+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relationship store request %s failed: %w", path, err)
	}
	return resp, nil
}

// responseError превращает не-200 ответ шлюза в AuthzError.
func responseError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var envelope struct {
		Error *wireError `json:"error"`
		// gRPC-gateway отдает ошибки и в плоском виде.
		Code    json.Number `json:"code"`
		Message string      `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if envelope.Error != nil {
			return &AuthzError{Code: envelope.Error.Code.String(), Message: envelope.Error.Message}
		}
		if envelope.Message != "" {
			return &AuthzError{Code: envelope.Code.String(), Message: envelope.Message}
		}
	}
	return &AuthzError{
		Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Message: strings.TrimSpace(string(raw)),
	}
}

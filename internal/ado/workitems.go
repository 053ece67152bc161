package ado

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/ShayCichocki/taskgenie/pkg/models"
)

// Tracking-system field references shared by every work item type.
const (
	fieldID            = "System.Id"
	fieldTitle         = "System.Title"
	fieldDescription   = "System.Description"
	fieldWorkItemType  = "System.WorkItemType"
	fieldState         = "System.State"
	fieldTags          = "System.Tags"
	fieldAreaPath      = "System.AreaPath"
	fieldIterationPath = "System.IterationPath"
	fieldTeamProject   = "System.TeamProject"
	fieldChangedBy     = "System.ChangedBy"
	fieldValueArea     = "Custom.AMAValueArea"
	fieldBusinessUnit  = "Custom.BusinessUnit"
	fieldSystem        = "Custom.System"
)

const hierarchyForward = "System.LinkTypes.Hierarchy-Forward"

// batchFields are requested for every child work item.
var batchFields = []string{
	fieldID, fieldTitle, fieldDescription, fieldWorkItemType, fieldState, fieldTags,
	fieldAreaPath, fieldIterationPath, fieldTeamProject, fieldChangedBy,
	models.FieldAcceptanceCriteria, models.FieldImportance,
	models.FieldSuccessCriteria, models.FieldObjective, models.FieldAddressedRisks,
	models.FieldPursueRisk, models.FieldMostRecentUpdate, models.FieldOutstandingActionItems,
	models.FieldBusinessDeliverable,
	fieldValueArea, fieldBusinessUnit, fieldSystem,
	models.FieldReleaseNotes, models.FieldQANotes,
}

// detailRefs are the type-specific fields copied into models.Details.
var detailRefs = []string{
	models.FieldAcceptanceCriteria, models.FieldSuccessCriteria, models.FieldObjective,
	models.FieldAddressedRisks, models.FieldPursueRisk, models.FieldMostRecentUpdate,
	models.FieldOutstandingActionItems, models.FieldBusinessDeliverable,
	models.FieldReleaseNotes, models.FieldQANotes, models.FieldImportance,
}

// closedStates are skipped when listing children.
var closedStates = map[string]bool{"Removed": true, "Closed": true, "Resolved": true}

type relation struct {
	Rel string `json:"rel"`
	URL string `json:"url"`
}

type workItemResponse struct {
	ID        int            `json:"id"`
	Rev       int            `json:"rev"`
	Fields    map[string]any `json:"fields"`
	Relations []relation     `json:"relations"`
}

type batchResponse struct {
	Count int                `json:"count"`
	Value []workItemResponse `json:"value"`
}

type batchRequest struct {
	IDs    []int    `json:"ids"`
	Fields []string `json:"fields"`
}

func projectPath(project string) string {
	return "/" + url.PathEscape(project)
}

// FetchWorkItem retrieves a work item by ID.
func (c *Client) FetchWorkItem(ctx context.Context, project string, id int) (*models.WorkItem, error) {
	c.logger.Info("fetching work item", "work_item_id", id, "project", project)

	var resp workItemResponse
	path := fmt.Sprintf("%s/_apis/wit/workItems/%d?api-version=%s", projectPath(project), id, apiVersion)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch work item %d: %w", id, err)
	}

	item := toWorkItem(resp, project)
	return &item, nil
}

// FetchChildren lists the open children of parent. Children of an
// unexpected type are logged and kept.
func (c *Client) FetchChildren(ctx context.Context, parent models.WorkItem) ([]models.WorkItem, error) {
	children := []models.WorkItem{}
	if parent.ID <= 0 {
		return children, nil
	}
	expected, hasExpected := models.ExpectedChildWorkItemType(parent)
	log := c.logger.With("work_item_id", parent.ID, "work_item_type", parent.Type)

	var resp workItemResponse
	path := fmt.Sprintf("%s/_apis/wit/workItems/%d?$expand=relations&api-version=%s", projectPath(parent.TeamProject), parent.ID, apiVersion)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch relations of %d: %w", parent.ID, err)
	}

	var ids []int
	for _, rel := range resp.Relations {
		if rel.Rel != hierarchyForward || rel.URL == "" {
			continue
		}
		id, err := strconv.Atoi(rel.URL[strings.LastIndex(rel.URL, "/")+1:])
		if err != nil {
			log.Warn("skipping child relation with unparseable url", "url", rel.URL)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		log.Info("no existing children")
		return children, nil
	}

	var batch batchResponse
	path = fmt.Sprintf("%s/_apis/wit/workitemsbatch?api-version=%s", projectPath(parent.TeamProject), apiVersion)
	if err := c.do(ctx, http.MethodPost, path, contentTypeJSON, batchRequest{IDs: ids, Fields: batchFields}, &batch); err != nil {
		return nil, fmt.Errorf("fetch children of %d: %w", parent.ID, err)
	}

	for _, raw := range batch.Value {
		child := toWorkItem(raw, parent.TeamProject)
		if hasExpected && child.Type != expected {
			log.Warn("unexpected child work item type", "expected", expected, "found", child.Type, "child_id", child.ID)
			// Read the fields of the type the parent expects so the child is
			// summarised like its siblings.
			child.Details = detailsOf(raw.Fields, expected)
		}
		if closedStates[child.State] {
			continue
		}
		child.ProcessTemplate = parent.ProcessTemplate
		children = append(children, child)
	}

	log.Info("fetched existing children", "count", len(children))
	return children, nil
}

// CreateChildren creates one work item per draft under parent and links each
// to it. It returns the items created before any failure.
func (c *Client) CreateChildren(ctx context.Context, parent models.WorkItem, drafts []models.ChildDraft) ([]models.WorkItem, error) {
	childType, ok := models.ExpectedChildWorkItemType(parent)
	if !ok {
		childType = models.WorkItemTypeTask
	}
	log := c.logger.With("work_item_id", parent.ID, "child_type", childType)
	log.Info("creating children", "count", len(drafts))

	created := make([]models.WorkItem, 0, len(drafts))
	for i, draft := range drafts {
		child := draft.ToWorkItem(parent, childType)

		var resp workItemResponse
		path := fmt.Sprintf("%s/_apis/wit/workitems/$%s?api-version=%s",
			projectPath(parent.TeamProject), url.PathEscape(string(childType)), apiVersion)
		if err := c.do(ctx, http.MethodPost, path, contentTypeJSONPatch, c.createOps(parent, child), &resp); err != nil {
			return created, fmt.Errorf("create %s %d/%d: %w", childType, i+1, len(drafts), err)
		}
		child.ID = resp.ID
		child.Rev = resp.Rev
		child.Tags = []string{c.tag}
		log.Info("created child", "child_id", child.ID, "title", child.Title)

		if err := c.link(ctx, parent, child.ID); err != nil {
			log.Error("failed to link child", "child_id", child.ID, "error", err)
		}
		created = append(created, child)
	}
	return created, nil
}

func (c *Client) createOps(parent, child models.WorkItem) []patchOp {
	ops := []patchOp{
		addField(fieldTitle, child.Title),
		addField(fieldDescription, child.Description),
		addField(fieldAreaPath, parent.AreaPath),
		addField(fieldIterationPath, parent.IterationPath),
		addField(fieldWorkItemType, string(child.Type)),
		addField(fieldTags, c.tag),
	}
	if child.Type == models.WorkItemTypeTask {
		return ops
	}
	ops = append(ops,
		addField(fieldValueArea, parent.ValueArea),
		addField(fieldBusinessUnit, parent.BusinessUnit),
		addField(fieldSystem, parent.System),
	)
	for _, f := range child.Details.StorageFields() {
		if !creatable(child.Type, f.Ref) {
			continue
		}
		ops = append(ops, addField(f.Ref, f.Value))
	}
	return ops
}

// creatable lists the type-specific fields a generated child is created with.
func creatable(t models.WorkItemType, ref string) bool {
	switch t {
	case models.WorkItemTypeUserStory:
		return ref == models.FieldAcceptanceCriteria || ref == models.FieldImportance
	case models.WorkItemTypeProductBacklogItem:
		return ref == models.FieldAcceptanceCriteria
	case models.WorkItemTypeFeature:
		return ref == models.FieldSuccessCriteria || ref == models.FieldBusinessDeliverable
	case models.WorkItemTypeEpic:
		return ref == models.FieldSuccessCriteria
	default:
		return false
	}
}

func (c *Client) link(ctx context.Context, parent models.WorkItem, childID int) error {
	ops := []patchOp{{
		Op:   "add",
		Path: "/relations/-",
		Value: map[string]any{
			"rel":        hierarchyForward,
			"url":        fmt.Sprintf("%s%s/_apis/wit/workItems/%d", c.baseURL, projectPath(parent.TeamProject), childID),
			"attributes": map[string]string{"comment": "Linking dependency"},
		},
	}}
	path := fmt.Sprintf("%s/_apis/wit/workitems/%d?api-version=%s", projectPath(parent.TeamProject), parent.ID, apiVersion)
	return c.do(ctx, http.MethodPatch, path, contentTypeJSONPatch, ops, nil)
}

// AddComment posts text on item, mentioning the person who last changed it.
func (c *Client) AddComment(ctx context.Context, item models.WorkItem, text string) error {
	mention := item.OriginalChangedBy
	if mention == "" {
		mention = item.ChangedBy
	}
	body := map[string]string{
		"text": fmt.Sprintf(`<div><a href="#" data-vss-mention="version:2.0,{user id}">@%s</a> %s</div>`, mention, text),
	}

	path := fmt.Sprintf("%s/_apis/wit/workItems/%d/comments?api-version=%s", projectPath(item.TeamProject), item.ID, commentsAPIVersion)
	if err := c.do(ctx, http.MethodPost, path, contentTypeJSON, body, nil); err != nil {
		return fmt.Errorf("add comment to %d: %w", item.ID, err)
	}
	c.logger.Info("added comment", "work_item_id", item.ID)
	return nil
}

// AddTag adds tag to a work item.
func (c *Client) AddTag(ctx context.Context, project string, id int, tag string) error {
	path := fmt.Sprintf("%s/_apis/wit/workItems/%d?api-version=%s", projectPath(project), id, apiVersion)
	if err := c.do(ctx, http.MethodPatch, path, contentTypeJSONPatch, []patchOp{addField(fieldTags, tag)}, nil); err != nil {
		return fmt.Errorf("add tag to %d: %w", id, err)
	}
	c.logger.Info("added tag", "work_item_id", id, "tag", tag)
	return nil
}

// toWorkItem maps a REST work item onto the domain model.
func toWorkItem(resp workItemResponse, project string) models.WorkItem {
	f := resp.Fields
	t := models.WorkItemType(stringField(f, fieldWorkItemType))

	item := models.WorkItem{
		ID:            resp.ID,
		Rev:           resp.Rev,
		Type:          t,
		TeamProject:   stringField(f, fieldTeamProject),
		Title:         stringField(f, fieldTitle),
		Description:   stringField(f, fieldDescription),
		State:         stringField(f, fieldState),
		AreaPath:      stringField(f, fieldAreaPath),
		IterationPath: stringField(f, fieldIterationPath),
		BusinessUnit:  stringField(f, fieldBusinessUnit),
		System:        stringField(f, fieldSystem),
		ValueArea:     stringField(f, fieldValueArea),
		ChangedBy:     stringField(f, fieldChangedBy),
		Tags:          models.SplitTags(stringField(f, fieldTags)),
	}
	if item.TeamProject == "" {
		item.TeamProject = project
	}

	item.Details = detailsOf(f, t)

	_, criteria := item.Criteria()
	item.Images = ExtractImages(item.Description + criteria)
	return item
}

// detailsOf reads the type-specific fields of t from a field map.
func detailsOf(fields map[string]any, t models.WorkItemType) models.Details {
	values := make(map[string]string, len(detailRefs))
	for _, ref := range detailRefs {
		values[ref] = stringField(fields, ref)
	}
	return models.DetailsFromFields(t, values)
}

// stringField returns a field as a string. Identity fields yield their
// display name.
func stringField(fields map[string]any, ref string) string {
	switch v := fields[ref].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case map[string]any:
		if name, ok := v["displayName"].(string); ok {
			return name
		}
	}
	return ""
}

var (
	imgTagPattern = regexp.MustCompile(`(?i)<img\b[^>]*>`)
	srcPattern    = regexp.MustCompile(`(?i)\bsrc\s*=\s*["']([^"']+)["']`)
	altPattern    = regexp.MustCompile(`(?i)\balt\s*=\s*["']([^"']*)["']`)
)

// ExtractImages returns the images embedded in HTML, in document order.
func ExtractImages(html string) []models.Image {
	var images []models.Image
	for _, tag := range imgTagPattern.FindAllString(html, -1) {
		src := srcPattern.FindStringSubmatch(tag)
		if src == nil {
			continue
		}
		img := models.Image{URL: src[1]}
		if alt := altPattern.FindStringSubmatch(tag); alt != nil {
			img.Alt = alt[1]
		}
		images = append(images, img)
	}
	return images
}

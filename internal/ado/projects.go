package ado

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ShayCichocki/taskgenie/pkg/models"
)

type projectResponse struct {
	Name         string `json:"name"`
	Capabilities struct {
		ProcessTemplate struct {
			TemplateName string `json:"templateName"`
		} `json:"processTemplate"`
	} `json:"capabilities"`
}

// ProcessTemplate returns the process template of project.
func (c *Client) ProcessTemplate(ctx context.Context, project string) (models.ProcessTemplate, error) {
	var resp projectResponse
	path := fmt.Sprintf("/_apis/projects/%s?includeCapabilities=true&api-version=%s", url.PathEscape(project), apiVersion)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return models.ProcessUnknown, fmt.Errorf("fetch project %s: %w", project, err)
	}

	name := resp.Capabilities.ProcessTemplate.TemplateName
	template := models.NormalizeProcessTemplate(name)
	c.logger.Info("resolved process template", "project", project, "template_name", name, "template", template)
	return template, nil
}

// Package mcpserver exposes the module registry over the Model Context
// Protocol on stdio: a resource listing every registered module, a per-module
// manifest resource, and an activate tool that runs the resolver for one
// module. It is an introspection surface only; the loader works the same
// without it.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kyriji/modloader/internal/registry"
	"github.com/kyriji/modloader/internal/resolver"
)

const modulesURI = "modloader://modules"

// moduleInfo is the JSON shape of one registry record.
type moduleInfo struct {
	Name         string   `json:"name"`
	ArtifactPath string   `json:"artifactPath"`
	Dependencies []string `json:"dependencies"`
	EntryPoint   string   `json:"entryPoint"`
	State        string   `json:"state"`
}

// snapshot renders the registry's current records, sorted by name.
func snapshot(reg *registry.Registry) []moduleInfo {
	infos := make([]moduleInfo, 0, reg.Len())
	for _, name := range reg.Names() {
		mod, _ := reg.Get(name)
		infos = append(infos, moduleInfo{
			Name:         mod.Name,
			ArtifactPath: mod.ArtifactPath,
			Dependencies: mod.Dependencies,
			EntryPoint:   mod.EntryPoint,
			State:        mod.State.String(),
		})
	}
	return infos
}

// Server serves registry introspection over stdio.
type Server struct {
	reg *registry.Registry
	res *resolver.Resolver
	mcp *server.MCPServer
}

// New builds the MCP server over a scanned registry. res may drive
// activations via the activate tool; the registry reflects the results.
func New(reg *registry.Registry, res *resolver.Resolver, version string) *Server {
	s := &Server{reg: reg, res: res}
	s.mcp = server.NewMCPServer("modloader", version,
		server.WithResourceCapabilities(false, true),
		server.WithToolCapabilities(false),
	)

	s.mcp.AddResource(
		mcp.NewResource(modulesURI, "Registered modules",
			mcp.WithResourceDescription("All modules discovered in the scan, with dependencies and activation state"),
			mcp.WithMIMEType("application/json"),
		),
		s.readModules,
	)

	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(modulesURI+"/{name}", "Module record",
			mcp.WithTemplateDescription("One module's manifest data and activation state"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.readModule,
	)

	s.mcp.AddTool(
		mcp.NewTool("activate",
			mcp.WithDescription("Resolve and activate one module, activating its dependencies first"),
			mcp.WithString("module", mcp.Required(), mcp.Description("Name of the module to activate")),
		),
		s.activateTool,
	)

	return s
}

// ServeStdio blocks, processing MCP messages on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) readModules(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(snapshot(s.reg), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      modulesURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) readModule(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	name := strings.TrimPrefix(request.Params.URI, modulesURI+"/")
	mod, ok := s.reg.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown module %q", name)
	}

	data, err := json.MarshalIndent(moduleInfo{
		Name:         mod.Name,
		ArtifactPath: mod.ArtifactPath,
		Dependencies: mod.Dependencies,
		EntryPoint:   mod.EntryPoint,
		State:        mod.State.String(),
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) activateTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("module")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.res.Activate(name); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("module %s activated", name)), nil
}

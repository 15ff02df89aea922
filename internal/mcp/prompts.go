package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("landing_page",
		mcp.WithPromptDescription("Guide through building a responsive landing page"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("Topic or product of the page"),
			mcp.RequiredArgument(),
		),
	), s.handleLandingPagePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("localize_rtl",
		mcp.WithPromptDescription("Convert the active page for a right-to-left language"),
		mcp.WithArgument("language",
			mcp.ArgumentDescription("Target language tag, e.g. ar, he, fa"),
			mcp.RequiredArgument(),
		),
	), s.handleLocalizeRTLPrompt)
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.TextContent{Type: "text", Text: text},
			},
		},
	}
}

func (s *Server) handleLandingPagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	return userPrompt(
		fmt.Sprintf("Build a landing page for: %s", topic),
		fmt.Sprintf(`Build a landing page for "%s" on the active page. Follow these steps:

1. Read catalog://components to see the available component types and their default sizes
2. Add a section, then a heading ("%s") and a text block with a one-paragraph pitch (add_component)
3. Add an image and a button with a call to action
4. Group the heading, text and button (group_components) so they move together
5. Switch to tablet (set_breakpoint) and use set_layout to stack the hero content; repeat for mobile
6. Check the result with get_page, then save_page

Let auto-layout place components unless a position matters.`, topic, topic),
	), nil
}

func (s *Server) handleLocalizeRTLPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	language := req.Params.Arguments["language"]
	return userPrompt(
		fmt.Sprintf("Localize the active page to %s", language),
		fmt.Sprintf(`Localize the active page to the language "%s". Follow these steps:

1. Use detect_direction to see the current and suggested direction
2. Translate the text props of every heading, text and button with update_component
3. Call set_direction with "rtl" once; layouts and directional styles are mirrored in one undoable step
4. Review with get_page; use undo if the mirrored page looks wrong
5. save_page when done`, language),
	), nil
}

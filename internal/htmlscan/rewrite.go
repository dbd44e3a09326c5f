package htmlscan

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/noah-isme/canvas-alt-text-api/internal/models"
)

// ApplyAltText rewrites the alt attribute of every <img> whose src matches
// an approved image's update URL. Skipped images are matched but left
// untouched. The rest of the markup passes through unchanged.
func ApplyAltText(fragment string, images []models.ImagePayload) (string, error) {
	if fragment == "" {
		return "", nil
	}

	nodes, err := parseFragment(fragment)
	if err != nil {
		return "", fmt.Errorf("parse content html: %w", err)
	}

	for _, root := range nodes {
		if err := walkImages(root, func(img *html.Node) error {
			src := attr(img, "src")
			for i := range images {
				if src != images[i].UpdateURL {
					continue
				}
				if images[i].Action == models.ActionApprove {
					setAttr(img, "alt", images[i].ApprovedAltText)
				}
			}
			return nil
		}); err != nil {
			return "", err
		}
	}

	var sb strings.Builder
	for _, root := range nodes {
		if err := html.Render(&sb, root); err != nil {
			return "", fmt.Errorf("render content html: %w", err)
		}
	}
	return sb.String(), nil
}

func setAttr(n *html.Node, name, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

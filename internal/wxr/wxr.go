// Package wxr reads WordPress eXtended RSS export files.
//
// Fields are matched by local element name so exports from every WXR
// version (1.0 through 1.2) decode the same way. Values are kept as raw
// strings; interpretation and defaulting belong to the importer.
package wxr

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Post types found in WordPress exports
const (
	TypePost        = "post"
	TypePage        = "page"
	TypeAttachment  = "attachment"
	TypeNavMenuItem = "nav_menu_item"
	TypeRevision    = "revision"
)

const (
	StatusPublish  = "publish"
	DomainCategory = "category"
	DomainTag      = "post_tag"

	wpDateLayout = "2006-01-02 15:04:05"
	wpZeroDate   = "0000-00-00 00:00:00"
	excerptSpace = "/excerpt/"
)

// ErrNoChannel is returned for documents without an RSS channel.
var ErrNoChannel = errors.New("wxr: document has no channel")

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC3339,
}

// Document is a parsed export
type Document struct {
	Title      string
	Link       string
	Categories []Category
	Tags       []Tag
	Items      []Item
}

// Category is a channel-level wp:category
type Category struct {
	XMLName     xml.Name
	Name        string `xml:"cat_name"`
	Slug        string `xml:"category_nicename"`
	Description string `xml:"category_description"`
	Parent      string `xml:"category_parent"`
}

// Tag is a channel-level wp:tag
type Tag struct {
	Name        string `xml:"tag_name"`
	Slug        string `xml:"tag_slug"`
	Description string `xml:"tag_description"`
}

// Term is an item-level category or tag reference
type Term struct {
	Domain   string `xml:"domain,attr"`
	Nicename string `xml:"nicename,attr"`
	Name     string `xml:",chardata"`
}

// Item is one exported record: post, page, attachment and so on
type Item struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	PubDate     string    `xml:"pubDate"`
	Creator     string    `xml:"creator"`
	PostID      string    `xml:"post_id"`
	PostDate    string    `xml:"post_date"`
	PostDateGMT string    `xml:"post_date_gmt"`
	PostName    string    `xml:"post_name"`
	Status      string    `xml:"status"`
	PostType    string    `xml:"post_type"`
	PostParent  string    `xml:"post_parent"`
	MenuOrder   string    `xml:"menu_order"`
	Terms       []Term    `xml:"category"`
	Comments    []Comment `xml:"comment"`
	Encoded     []encoded `xml:"encoded"`

	Content string `xml:"-"`
	Excerpt string `xml:"-"`
}

type encoded struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// Comment is a wp:comment nested in an item
type Comment struct {
	ID          string  `xml:"comment_id"`
	Author      string  `xml:"comment_author"`
	AuthorEmail string  `xml:"comment_author_email"`
	AuthorURL   string  `xml:"comment_author_url"`
	Date        string  `xml:"comment_date"`
	DateGMT     string  `xml:"comment_date_gmt"`
	Content     string  `xml:"comment_content"`
	Approved    *string `xml:"comment_approved"`
	Type        string  `xml:"comment_type"`
	Parent      string  `xml:"comment_parent"`
}

type rss struct {
	Channel *channel `xml:"channel"`
}

type channel struct {
	Title      string     `xml:"title"`
	Link       string     `xml:"link"`
	Categories []Category `xml:"category"`
	Tags       []Tag      `xml:"tag"`
	Items      []Item     `xml:"item"`
}

// Parse decodes an export document. Any structural XML error is fatal.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	dec.Entity = xml.HTMLEntity

	var doc rss
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("wxr: decode: %w", err)
	}
	if doc.Channel == nil {
		return nil, ErrNoChannel
	}

	out := &Document{
		Title: strings.TrimSpace(doc.Channel.Title),
		Link:  strings.TrimSpace(doc.Channel.Link),
		Tags:  doc.Channel.Tags,
		Items: doc.Channel.Items,
	}
	// Plain RSS <category> elements share the local name with wp:category.
	for _, c := range doc.Channel.Categories {
		if c.XMLName.Space != "" {
			out.Categories = append(out.Categories, c)
		}
	}
	for i := range out.Items {
		out.Items[i].splitEncoded()
	}
	return out, nil
}

// ParseFile opens and parses the export at path
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func (it *Item) splitEncoded() {
	for _, e := range it.Encoded {
		if strings.Contains(e.XMLName.Space, excerptSpace) {
			it.Excerpt = e.Value
		} else {
			it.Content = e.Value
		}
	}
	it.Encoded = nil
}

// Type returns the normalized post type
func (it *Item) Type() string {
	return strings.TrimSpace(it.PostType)
}

// Published reports whether the item has WordPress status "publish"
func (it *Item) Published() bool {
	return strings.TrimSpace(it.Status) == StatusPublish
}

// ExternalID parses wp:post_id
func (it *Item) ExternalID() (int64, error) {
	return parseID("post_id", it.PostID)
}

// Date resolves the item's publish date from pubDate, falling back to
// wp:post_date_gmt and wp:post_date. ok is false when no date is present.
func (it *Item) Date() (t time.Time, ok bool, err error) {
	pub := strings.TrimSpace(it.PubDate)
	if pub != "" {
		for _, layout := range pubDateLayouts {
			if t, err := time.Parse(layout, pub); err == nil {
				return t, true, nil
			}
		}
	}
	t, ok, err = parseWPDate(it.PostDateGMT, it.PostDate)
	if err != nil || ok {
		return t, ok, err
	}
	if pub != "" {
		return time.Time{}, false, fmt.Errorf("unparseable pubDate %q", pub)
	}
	return time.Time{}, false, nil
}

// CategoryNames returns the names of item terms in the category domain
func (it *Item) CategoryNames() []string {
	return it.termNames(DomainCategory)
}

// TagNames returns the names of item terms in the post_tag domain
func (it *Item) TagNames() []string {
	return it.termNames(DomainTag)
}

func (it *Item) termNames(domain string) []string {
	var names []string
	for _, t := range it.Terms {
		if t.Domain != domain {
			continue
		}
		if name := strings.TrimSpace(t.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Order parses wp:menu_order, defaulting to 0
func (it *Item) Order() int {
	n, err := strconv.Atoi(strings.TrimSpace(it.MenuOrder))
	if err != nil {
		return 0
	}
	return n
}

// ExternalID parses wp:comment_id
func (c *Comment) ExternalID() (int64, error) {
	return parseID("comment_id", c.ID)
}

// IsApproved treats a missing flag and "1" as approved. Pending, spam and
// trash comments are not approved.
func (c *Comment) IsApproved() bool {
	if c.Approved == nil {
		return true
	}
	switch strings.TrimSpace(*c.Approved) {
	case "", "1", "approve", "approved":
		return true
	}
	return false
}

// ParsedDate resolves the comment date. ok is false when absent.
func (c *Comment) ParsedDate() (time.Time, bool, error) {
	return parseWPDate(c.DateGMT, c.Date)
}

func parseWPDate(gmt, local string) (time.Time, bool, error) {
	var bad string
	for _, s := range []string{gmt, local} {
		s = strings.TrimSpace(s)
		if s == "" || s == wpZeroDate {
			continue
		}
		if t, err := time.Parse(wpDateLayout, s); err == nil {
			return t, true, nil
		}
		if bad == "" {
			bad = s
		}
	}
	if bad != "" {
		return time.Time{}, false, fmt.Errorf("unparseable date %q", bad)
	}
	return time.Time{}, false, nil
}

func parseID(field, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", field)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric %s %q", field, raw)
	}
	return id, nil
}

package homepage

import (
	"fmt"

	"github.com/MrSnakeDoc/bookmarker/internal/domain"
	"github.com/MrSnakeDoc/bookmarker/internal/transfer"
)

// ServiceMapper converts Homepage services to an import document
type ServiceMapper struct{}

// NewServiceMapper creates a new mapper instance
func NewServiceMapper() *ServiceMapper {
	return &ServiceMapper{}
}

// MapServices turns service groups into categories and services into
// bookmarks carrying the service description.
func (m *ServiceMapper) MapServices(config ServicesConfig) (*transfer.Document, error) {
	b := newDocumentBuilder()
	m.mapInto(b, config)
	if len(b.doc.Bookmarks) == 0 {
		return nil, fmt.Errorf("no valid services found in homepage config")
	}
	return b.doc, nil
}

func (m *ServiceMapper) mapInto(b *documentBuilder, config ServicesConfig) {
	for _, groupMap := range config {
		for _, groupName := range sortedKeys(groupMap) {
			for _, serviceMap := range groupMap[groupName] {
				for _, serviceName := range sortedKeys(serviceMap) {
					props := serviceMap[serviceName]
					// Skip services without a usable href
					if _, err := domain.ParseBookmarkURL(props.Href); err != nil {
						continue
					}
					b.add(groupName, transfer.BookmarkRecord{
						URL:         props.Href,
						Title:       serviceName,
						Description: props.Description,
						Favicon:     favicon(props.Icon),
					})
				}
			}
		}
	}
}

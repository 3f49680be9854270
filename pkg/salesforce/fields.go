package salesforce

import (
	"context"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ContactObject is the SObject that mapped headers are imported into.
const ContactObject = "Contact"

// ContactCustomFields returns the sorted API names of the custom fields
// defined on Contact that an import can write.
func ContactCustomFields(ctx context.Context, c Client) ([]string, error) {
	desc, err := c.DescribeSObject(ctx, ContactObject)
	if err != nil {
		return nil, eris.Wrap(err, "sf: contact custom fields")
	}

	var names []string
	for _, f := range desc.Fields {
		if !f.Custom && !strings.HasSuffix(f.Name, "__c") {
			continue
		}
		if !f.Createable && !f.Updateable {
			continue
		}
		names = append(names, f.Name)
	}
	sort.Strings(names)

	zap.L().Info("salesforce: loaded contact custom fields",
		zap.Int("described", len(desc.Fields)),
		zap.Int("custom", len(names)),
	)
	return names, nil
}

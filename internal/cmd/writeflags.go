package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/3leaps/nimbusfs/pkg/adapter"
)

// writeFlags are the object options shared by commands that create objects.
type writeFlags struct {
	visibility   string
	acl          string
	contentType  string
	storageClass string
	metadata     map[string]string
	sse          string
	kmsKeyID     string
}

func (w *writeFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&w.visibility, "visibility", "", "public or private")
	f.StringVar(&w.acl, "acl", "", "Canned ACL (overrides --visibility)")
	f.StringVar(&w.contentType, "content-type", "", "Content-Type (default: detected)")
	f.StringVar(&w.storageClass, "storage-class", "", "Storage class (e.g. STANDARD_IA)")
	f.StringToStringVar(&w.metadata, "meta", nil, "User metadata key=value (repeatable)")
	f.StringVar(&w.sse, "sse", "", "Server-side encryption: AES256 or aws:kms")
	f.StringVar(&w.kmsKeyID, "sse-kms-key-id", "", "KMS key id for --sse aws:kms")
}

func (w *writeFlags) options() ([]adapter.WriteOption, error) {
	var opts []adapter.WriteOption
	if w.visibility != "" {
		v, err := adapter.ParseVisibility(w.visibility)
		if err != nil {
			return nil, err
		}
		opts = append(opts, adapter.WithVisibility(v))
	}
	if w.acl != "" {
		opts = append(opts, adapter.WithACL(w.acl))
	}
	if w.contentType != "" {
		opts = append(opts, adapter.WithContentType(w.contentType))
	}
	if w.storageClass != "" {
		opts = append(opts, adapter.WithStorageClass(w.storageClass))
	}
	if len(w.metadata) > 0 {
		opts = append(opts, adapter.WithMetadata(w.metadata))
	}
	if w.kmsKeyID != "" && w.sse == "" {
		return nil, fmt.Errorf("%w: --sse-kms-key-id requires --sse aws:kms", adapter.ErrInvalidArgument)
	}
	if w.sse != "" {
		opts = append(opts, adapter.WithServerSideEncryption(w.sse, w.kmsKeyID))
	}
	return opts, nil
}

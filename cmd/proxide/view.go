package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/denisvmedia/proxide/internal/capture"
	"github.com/denisvmedia/proxide/internal/grpcdecode"
	"github.com/denisvmedia/proxide/internal/searchindex"
	"github.com/denisvmedia/proxide/internal/session"
)

func newViewCmd() *cobra.Command {
	var (
		file       string
		search     string
		protoPaths []string
		protoFiles []string
	)

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Replay a capture or session file and print its contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			sess, err := capture.Replay(f, nil)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(sess.ToSnapshot())
			}

			var schema *grpcdecode.Schema
			if len(protoFiles) > 0 {
				schema, err = grpcdecode.CompileSchema(cmd.Context(), normalizeProtoPaths(protoPaths), protoFiles)
				if err != nil {
					return fmt.Errorf("compiling .proto schema: %w", err)
				}
			}

			requests := sess.Requests()
			if search != "" {
				idx := buildSearchIndex(sess)
				matched := make(map[string]bool)
				for _, id := range idx.Search(search) {
					matched[id.String()] = true
				}
				requests = sess.RequestsMatching(func(r *session.Request) bool { return matched[r.ID.String()] })
			}

			for _, conn := range sess.Connections() {
				fmt.Printf("connection %s  %s  %v\n", conn.ID, conn.ClientAddr, conn.Status)
			}
			for _, req := range requests {
				fmt.Printf("  request %s  %s %s  %v  %d bytes req / %d bytes resp\n",
					req.ID, req.Method, req.URI, req.Status,
					len(req.RequestMsg.Content), len(req.ResponseMsg.Content))
				if schema != nil {
					printGRPCMessages(schema, req)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "capture or session file to replay")
	cmd.Flags().StringVar(&search, "search", "", "glob pattern to filter requests by request/response content")
	cmd.Flags().StringSliceVar(&protoPaths, "proto-path", nil, "directory to search for .proto schema files (repeatable)")
	cmd.Flags().StringSliceVar(&protoFiles, "proto-file", nil, "compile this .proto file and decode matching gRPC bodies (repeatable)")
	cmd.MarkFlagRequired("file")

	return cmd
}

// buildSearchIndex tokenizes every request/response body on whitespace,
// the simplest reasonable token boundary for free-text glob search over
// otherwise-opaque captured bytes.
func buildSearchIndex(sess *session.Session) *searchindex.Index {
	idx := searchindex.New()
	for _, req := range sess.Requests() {
		idx.IndexRequest(req.ID, strings.Fields(string(req.RequestMsg.Content)))
		idx.IndexResponse(req.ID, strings.Fields(string(req.ResponseMsg.Content)))
	}
	return idx
}

// printGRPCMessages decodes and renders a request's gRPC frames against
// schema, when its URI resolves to a known method. Decode failures for one
// request are reported inline rather than aborting the whole `view` run.
func printGRPCMessages(schema *grpcdecode.Schema, req *session.Request) {
	route, ok := grpcdecode.ResolveRoute(req.URI)
	if !ok {
		return
	}
	method, ok := schema.FindMethod(route)
	if !ok {
		return
	}

	reqMsgs, err := grpcdecode.DecodeBody(req.RequestMsg.Headers.Get("Content-Encoding"), req.RequestMsg.Content, method.Input())
	if err != nil {
		fmt.Printf("    request decode error: %v\n", err)
	}
	for _, m := range reqMsgs {
		fmt.Printf("    -> %s\n", m.Rendered)
	}

	respMsgs, err := grpcdecode.DecodeBody(req.ResponseMsg.Headers.Get("Content-Encoding"), req.ResponseMsg.Content, method.Output())
	if err != nil {
		fmt.Printf("    response decode error: %v\n", err)
	}
	for _, m := range respMsgs {
		fmt.Printf("    <- %s\n", m.Rendered)
	}
}

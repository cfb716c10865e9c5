package main

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"assetproxy/pkg/assetclient"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

func newListCmd(opts *globalOptions) *cobra.Command {
	var p assetclient.ListParams
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List images in a folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.requestContext(cmd)
			defer cancel()
			resp := opts.client().ListImages(ctx, p)
			return renderResult(cmd.OutOrStdout(), opts.output, resp, &resp.Outcome)
		},
	}
	cmd.Flags().IntVar(&p.Page, "page", 0, "1-based page number")
	cmd.Flags().IntVar(&p.Limit, "limit", 0, "page size")
	cmd.Flags().StringVar(&p.Search, "search", "", "filename or public_id fragment")
	cmd.Flags().StringVar(&p.Folder, "folder", "", "folder to list")
	cmd.Flags().StringVar(&p.SortBy, "sort-by", "", "created_at, bytes, filename or public_id")
	cmd.Flags().StringVar(&p.Order, "order", "", "asc or desc")
	cmd.Flags().StringVar(&p.Cursor, "cursor", "", "continuation cursor from a previous page")
	return cmd
}

func newStatsCmd(opts *globalOptions) *cobra.Command {
	var folder string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show folder statistics and account usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.requestContext(cmd)
			defer cancel()
			resp := opts.client().Stats(ctx, folder)
			return renderResult(cmd.OutOrStdout(), opts.output, resp, &resp.Outcome)
		},
	}
	cmd.Flags().StringVar(&folder, "folder", "", "folder to analyse")
	return cmd
}

func newDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <public_id>",
		Short: "Delete a single image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.requestContext(cmd)
			defer cancel()
			resp := opts.client().DeleteImage(ctx, args[0])
			return renderResult(cmd.OutOrStdout(), opts.output, resp, &resp.Outcome)
		},
	}
}

func newDeleteManyCmd(opts *globalOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "delete-many [public_id...]",
		Short: "Delete images in batches of 100",
		Long: `Delete many images at once. IDs come from arguments and,
with --file, from a file containing one public_id per line ("-" reads stdin).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := append([]string(nil), args...)
			if file != "" {
				fromFile, err := readIDs(cmd, file)
				if err != nil {
					return err
				}
				ids = append(ids, fromFile...)
			}
			if len(ids) == 0 {
				return fmt.Errorf("no public_ids given")
			}

			ctx, cancel := opts.requestContext(cmd)
			defer cancel()
			resp := opts.client().DeleteImages(ctx, ids)
			return renderResult(cmd.OutOrStdout(), opts.output, resp, &resp.Outcome)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read public_ids from file, one per line")
	return cmd
}

func readIDs(cmd *cobra.Command, path string) ([]string, error) {
	var scanner *bufio.Scanner
	if path == "-" {
		scanner = bufio.NewScanner(cmd.InOrStdin())
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open id file: %w", err)
		}
		defer f.Close()
		scanner = bufio.NewScanner(f)
	}

	var ids []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read id file: %w", err)
	}
	return ids, nil
}

func newHealthCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to the media provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.requestContext(cmd)
			defer cancel()
			resp := opts.client().Health(ctx)
			return renderResult(cmd.OutOrStdout(), opts.output, resp, &resp.Outcome)
		},
	}
}

func newFoldersCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "folders",
		Short: "List top-level folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.requestContext(cmd)
			defer cancel()
			resp := opts.client().Folders(ctx)
			return renderResult(cmd.OutOrStdout(), opts.output, resp, &resp.Outcome)
		},
	}
}

func newOldCmd(opts *globalOptions) *cobra.Command {
	var p assetclient.OldImagesParams
	cmd := &cobra.Command{
		Use:   "old",
		Short: "List images older than a number of days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.requestContext(cmd)
			defer cancel()
			resp := opts.client().OldImages(ctx, p)
			return renderResult(cmd.OutOrStdout(), opts.output, resp, &resp.Outcome)
		},
	}
	cmd.Flags().IntVar(&p.OlderThanDays, "days", 0, "age threshold in days (server default 30)")
	cmd.Flags().IntVar(&p.Limit, "limit", 0, "maximum number of images")
	cmd.Flags().StringVar(&p.Folder, "folder", "", "folder to scan")
	return cmd
}

func newUploadCmd(opts *globalOptions) *cobra.Command {
	var (
		folder   string
		filename string
	)
	cmd := &cobra.Command{
		Use:   "upload <path|url>",
		Short: "Upload an image file or remote URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image := args[0]
			if !strings.HasPrefix(image, "http://") && !strings.HasPrefix(image, "https://") {
				file, data, err := inspectFile(image)
				if err != nil {
					return err
				}
				if check := assetclient.ValidateImage(file, assetclient.DefaultRules()); !check.Valid {
					return fmt.Errorf("%s: %s", image, check.Error)
				}
				image = "data:" + file.Type + ";base64," + base64.StdEncoding.EncodeToString(data)
				if filename == "" {
					filename = strings.TrimSuffix(filepath.Base(file.Name), filepath.Ext(file.Name))
				}
			}

			ctx, cancel := opts.requestContext(cmd)
			defer cancel()
			resp := opts.client().Upload(ctx, assetclient.UploadParams{
				Image:    image,
				Folder:   folder,
				Filename: filename,
			})
			return renderResult(cmd.OutOrStdout(), opts.output, resp, &resp.Outcome)
		},
	}
	cmd.Flags().StringVar(&folder, "folder", "", "destination folder")
	cmd.Flags().StringVar(&filename, "filename", "", "public name without extension")
	return cmd
}

func newDeletionsCmd(opts *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "deletions",
		Short: "Show the recent deletion audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.requestContext(cmd)
			defer cancel()
			resp := opts.client().Deletions(ctx, limit)
			return renderResult(cmd.OutOrStdout(), opts.output, resp, &resp.Outcome)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of entries")
	return cmd
}

type validateReport struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Size  string `json:"size"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func newValidateCmd(opts *globalOptions) *cobra.Command {
	var maxSize string
	cmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Check files against the upload rules without uploading",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules := assetclient.DefaultRules()
			if maxSize != "" {
				size, err := units.RAMInBytes(maxSize)
				if err != nil {
					return fmt.Errorf("invalid --max-size: %w", err)
				}
				rules.MaxSize = size
			}

			reports := make([]validateReport, 0, len(args))
			invalid := 0
			for _, path := range args {
				file, _, err := inspectFile(path)
				if err != nil {
					return err
				}
				check := assetclient.ValidateImage(file, rules)
				if !check.Valid {
					invalid++
				}
				reports = append(reports, validateReport{
					Name:  file.Name,
					Type:  file.Type,
					Size:  units.HumanSize(float64(file.Size)),
					Valid: check.Valid,
					Error: check.Error,
				})
			}

			if err := render(cmd.OutOrStdout(), opts.output, reports); err != nil {
				return err
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d files failed validation", invalid, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&maxSize, "max-size", "", "size limit, e.g. 10MiB")
	return cmd
}

// inspectFile 读取文件并按内容嗅探 MIME 类型。
func inspectFile(path string) (assetclient.File, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return assetclient.File{}, nil, fmt.Errorf("read %s: %w", path, err)
	}
	mimeType := ""
	if len(data) > 0 {
		mimeType = http.DetectContentType(data)
	}
	return assetclient.File{
		Name: filepath.Base(path),
		Type: mimeType,
		Size: int64(len(data)),
	}, data, nil
}

func newURLCmd(opts *globalOptions) *cobra.Command {
	var (
		cloud   string
		base    string
		display assetclient.DisplayOptions
	)
	cmd := &cobra.Command{
		Use:   "url <public_id>",
		Short: "Build a display URL with transformations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if base == "" {
				if cloud == "" {
					return fmt.Errorf("either --cloud or --base is required")
				}
				base = assetclient.CloudinaryBaseURL(cloud)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), assetclient.BuildDisplayURL(base, args[0], display))
			return err
		},
	}
	cmd.Flags().StringVar(&cloud, "cloud", os.Getenv("CLOUDINARY_CLOUD_NAME"), "Cloudinary cloud name")
	cmd.Flags().StringVar(&base, "base", "", "delivery base URL, overrides --cloud")
	cmd.Flags().IntVar(&display.Width, "width", 0, "w_ transformation")
	cmd.Flags().IntVar(&display.Height, "height", 0, "h_ transformation")
	cmd.Flags().StringVar(&display.Crop, "crop", "", "c_ transformation")
	cmd.Flags().StringVar(&display.Quality, "quality", "", "q_ transformation")
	cmd.Flags().StringVar(&display.Format, "format", "", "f_ transformation")
	return cmd
}

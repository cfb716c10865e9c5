package assetclient

import "time"

// Outcome 是所有响应共有的结果字段。失败时 Success 为 false，Error 描述原因。
type Outcome struct {
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	Code       string `json:"code,omitempty"`
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"-"`
}

func (o *Outcome) outcome() *Outcome { return o }

func (o *Outcome) fail(msg string) {
	o.Success = false
	o.Error = msg
}

// Image 是服务端返回的资源。
type Image struct {
	PublicID  string         `json:"public_id"`
	Filename  string         `json:"filename,omitempty"`
	Format    string         `json:"format,omitempty"`
	Width     *int           `json:"width,omitempty"`
	Height    *int           `json:"height,omitempty"`
	Bytes     int64          `json:"bytes"`
	CreatedAt *time.Time     `json:"created_at,omitempty"`
	Folder    string         `json:"folder,omitempty"`
	SecureURL string         `json:"secure_url,omitempty"`
	URL       string         `json:"url,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ImagesResponse 对应 GET /cloudinary/images。
type ImagesResponse struct {
	Outcome
	Resources  []Image `json:"resources"`
	TotalCount int     `json:"total_count"`
	NextCursor string  `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	SearchTerm string  `json:"search_term"`
	Folder     string  `json:"folder"`
}

// FormatStat 是某一格式的数量与大小。
type FormatStat struct {
	Count int   `json:"count"`
	Size  int64 `json:"size"`
}

// FolderStats 是文件夹统计。Approximate 表示只统计了部分资源。
type FolderStats struct {
	Name            string                `json:"name"`
	TotalImages     int                   `json:"totalImages"`
	TotalSize       int64                 `json:"totalSize"`
	TotalSizeHuman  string                `json:"totalSizeHuman"`
	AverageSize     int64                 `json:"averageSize"`
	FormatBreakdown map[string]FormatStat `json:"formatBreakdown"`
	LargestFiles    []Image               `json:"largestFiles"`
	RecentUploads   int                   `json:"recentUploads"`
	SampledImages   int                   `json:"sampledImages"`
	Approximate     bool                  `json:"approximate"`
}

// Quota 是某项用量。
type Quota struct {
	Usage       float64 `json:"usage"`
	Limit       float64 `json:"limit,omitempty"`
	UsedPercent float64 `json:"used_percent,omitempty"`
}

// AccountUsage 是账户级用量。
type AccountUsage struct {
	Plan      string `json:"plan"`
	Credits   *Quota `json:"credits,omitempty"`
	Bandwidth *Quota `json:"bandwidth,omitempty"`
	Storage   *Quota `json:"storage,omitempty"`
	Resources int64  `json:"resources,omitempty"`
}

// StatsResponse 对应 GET /cloudinary/stats。
type StatsResponse struct {
	Outcome
	Stats struct {
		Folder  FolderStats   `json:"folder"`
		Account *AccountUsage `json:"account,omitempty"`
	} `json:"stats"`
	Timestamp time.Time `json:"timestamp"`
}

// DeleteResponse 对应 DELETE /cloudinary/delete。
type DeleteResponse struct {
	Outcome
	Message  string `json:"message,omitempty"`
	Result   string `json:"result,omitempty"`
	PublicID string `json:"public_id,omitempty"`
}

// BatchResult 是一个删除批次的结果。
type BatchResult struct {
	Batch   int               `json:"batch"`
	Size    int               `json:"size"`
	Deleted map[string]string `json:"deleted,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// DeleteManyResponse 对应 POST /cloudinary/delete-multiple。
type DeleteManyResponse struct {
	Outcome
	Message string `json:"message,omitempty"`
	Details struct {
		TotalRequested int           `json:"total_requested"`
		Successful     int           `json:"successful"`
		Failed         int           `json:"failed"`
		Policy         string        `json:"policy"`
		Results        []BatchResult `json:"results"`
	} `json:"details"`
}

// HealthResponse 对应 /health 与 /cloudinary/health。
type HealthResponse struct {
	Outcome
	Status    string    `json:"status,omitempty"`
	Message   string    `json:"message,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Folder 是顶层文件夹。
type Folder struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// FoldersResponse 对应 GET /cloudinary/folders。
type FoldersResponse struct {
	Outcome
	Folders []Folder `json:"folders"`
}

// OldImagesResponse 对应 GET /cloudinary/old-images。
type OldImagesResponse struct {
	Outcome
	Resources     []Image   `json:"resources"`
	Count         int       `json:"count"`
	Folder        string    `json:"folder"`
	OlderThanDays int       `json:"older_than_days"`
	Cutoff        time.Time `json:"cutoff"`
}

// UploadResponse 对应 POST /cloudinary/upload。
type UploadResponse struct {
	Outcome
	Message string `json:"message,omitempty"`
	Image   *Image `json:"image,omitempty"`
}

// Deletion 是一条删除审计记录。
type Deletion struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	Provider       string    `json:"provider"`
	RequestID      string    `json:"request_id,omitempty"`
	SuccessPolicy  string    `json:"success_policy"`
	TotalRequested int       `json:"total_requested"`
	Successful     int       `json:"successful"`
	Failed         int       `json:"failed"`
	Success        bool      `json:"success"`
	PublicIDs      []string  `json:"public_ids"`
	CreatedAt      time.Time `json:"created_at"`
}

// DeletionsResponse 对应 GET /cloudinary/deletions。
type DeletionsResponse struct {
	Outcome
	Deletions []Deletion `json:"deletions"`
}

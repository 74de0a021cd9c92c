package quark

// envelope is the part of every 2xx JSON response this client inspects
// before attempting to decode the typed body: the remote API returns HTTP
// 200 even for business-level failures, distinguished only by Code != 0.
type envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// ListResponse is the body of GET /file/sort.
type ListResponse struct {
	Code     int          `json:"code"`
	Msg      string       `json:"msg"`
	Data     ListData     `json:"data"`
	Metadata ListMetadata `json:"metadata"`
}

type ListData struct {
	List []ListEntry `json:"list"`
}

type ListEntry struct {
	Fid       string `json:"fid"`
	FileName  string `json:"file_name"`
	Size      int64  `json:"size"`
	File      bool   `json:"file"` // true means "is a file", i.e. !IsDir
	UpdatedAt int64  `json:"updated_at"`
	CreatedAt int64  `json:"created_at"`
}

type ListMetadata struct {
	Size  int `json:"_size"`
	Page  int `json:"_page"`
	Count int `json:"_count"`
	Total int `json:"_total"`
}

// DownloadResponse is the body of POST /file/download.
type DownloadResponse struct {
	Code int            `json:"code"`
	Msg  string         `json:"msg"`
	Data []DownloadItem `json:"data"`
}

type DownloadItem struct {
	DownloadURL string `json:"download_url"`
	RangeSize   int64  `json:"range_size"`
	Size        int64  `json:"size"`
}

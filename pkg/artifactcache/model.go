package artifactcache

// ReserveRequest is the body of POST /caches.
type ReserveRequest struct {
	Key     string `json:"key"`
	Version string `json:"version"`
	Size    int64  `json:"cacheSize"`
}

func (r *ReserveRequest) ToEntry() *Entry {
	if r == nil {
		return nil
	}
	ret := &Entry{
		Key:     r.Key,
		Version: r.Version,
		Size:    r.Size,
	}
	if r.Size == 0 {
		// Old clients, like `actions/cache@v2`, don't send the size.
		ret.Size = -1
	}
	return ret
}

// Entry is one reserved or committed archive.
type Entry struct {
	ID        uint64 `json:"id" boltholdKey:"ID"`
	Key       string `json:"key" boltholdIndex:"Key"`
	Version   string `json:"version" boltholdIndex:"Version"`
	Size      int64  `json:"cacheSize"`
	Complete  bool   `json:"complete" boltholdIndex:"Complete"`
	UsedAt    int64  `json:"usedAt" boltholdIndex:"UsedAt"`
	CreatedAt int64  `json:"createdAt" boltholdIndex:"CreatedAt"`
}

// lookupResponse is the body of a GET /cache hit.
type lookupResponse struct {
	Result          string `json:"result"`
	ArchiveLocation string `json:"archiveLocation"`
	CacheKey        string `json:"cacheKey"`
	Scope           string `json:"scope,omitempty"`
	CreationTime    string `json:"creationTime"`
}

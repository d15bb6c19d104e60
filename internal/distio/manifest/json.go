package manifest

// JSONDoc is the wire shape a launcher consumes. url_to_path_map is
// deliberately not part of it — the index is an internal lookup structure.
type JSONDoc struct {
	MainClass   mainClassDoc `json:"main_class"`
	JavaVersion javaVerDoc   `json:"java_version"`
	Arguments   argumentsDoc `json:"arguments"`
	Libraries   []libraryDoc `json:"libraries"`
	Mods        []modDoc     `json:"mods"`
	Natives     []nativeDoc  `json:"natives,omitempty"`
	Client      *clientDoc   `json:"client,omitempty"`
	Assets      []assetDoc   `json:"assets"`
}

type mainClassDoc struct {
	MainClass string `json:"main_class"`
}

type javaVerDoc struct {
	MajorVersion int `json:"major_version"`
}

type argumentsDoc struct {
	Game []string `json:"game"`
	JVM  []string `json:"jvm"`
}

type libraryDoc struct {
	Coordinate string `json:"coordinate"`
	Path       string `json:"path,omitempty"`
	URL        string `json:"url,omitempty"`
	Sha1       string `json:"sha1,omitempty"`
	Size       *int64 `json:"size,omitempty"`
}

type modDoc struct {
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
	URL  string `json:"url,omitempty"`
	Sha1 string `json:"sha1,omitempty"`
	Size *int64 `json:"size,omitempty"`
}

type nativeDoc struct {
	OS   string `json:"os"`
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
	URL  string `json:"url,omitempty"`
	Sha1 string `json:"sha1,omitempty"`
	Size *int64 `json:"size,omitempty"`
}

type clientDoc struct {
	Path string `json:"path,omitempty"`
	URL  string `json:"url,omitempty"`
	Sha1 string `json:"sha1,omitempty"`
	Size *int64 `json:"size,omitempty"`
}

type assetDoc struct {
	Path string `json:"path,omitempty"`
	URL  string `json:"url,omitempty"`
	Hash string `json:"hash,omitempty"`
	Size *int64 `json:"size,omitempty"`
}

func sizePtr(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}

// ToJSON renders the current entry set into the launcher-facing document.
func (m *Manifest) ToJSON() JSONDoc {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc := JSONDoc{
		MainClass:   mainClassDoc{MainClass: m.Static.MainClass},
		JavaVersion: javaVerDoc{MajorVersion: m.Static.JavaVersion},
		Arguments:   argumentsDoc{Game: m.Static.GameArgs, JVM: m.Static.JVMArgs},
		Libraries:   make([]libraryDoc, 0, len(m.Libraries)),
		Mods:        make([]modDoc, 0, len(m.Mods)),
		Assets:      make([]assetDoc, 0, len(m.Assets)),
	}

	if m.Client != nil {
		doc.Client = &clientDoc{
			Path: m.Client.RelativePath,
			URL:  m.Client.PublicURL,
			Sha1: m.Client.ContentHash,
			Size: sizePtr(m.Client.Size),
		}
	}

	for _, l := range m.Libraries {
		doc.Libraries = append(doc.Libraries, libraryDoc{
			Coordinate: l.MavenCoordinate,
			Path:       l.RelativePath,
			URL:        l.PublicURL,
			Sha1:       l.ContentHash,
			Size:       sizePtr(l.Size),
		})
	}

	for _, mo := range m.Mods {
		doc.Mods = append(doc.Mods, modDoc{
			Name: mo.Name,
			Path: mo.RelativePath,
			URL:  mo.PublicURL,
			Sha1: mo.ContentHash,
			Size: sizePtr(mo.Size),
		})
	}

	if len(m.Natives) > 0 {
		doc.Natives = make([]nativeDoc, 0, len(m.Natives))
		for _, n := range m.Natives {
			doc.Natives = append(doc.Natives, nativeDoc{
				OS:   string(n.NativeOS),
				Name: n.Name,
				Path: n.RelativePath,
				URL:  n.PublicURL,
				Sha1: n.ContentHash,
				Size: sizePtr(n.Size),
			})
		}
	}

	for _, a := range m.Assets {
		doc.Assets = append(doc.Assets, assetDoc{
			Path: a.RelativePath,
			URL:  a.PublicURL,
			Hash: a.ContentHash,
			Size: sizePtr(a.Size),
		})
	}

	return doc
}

package metadb

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"github.com/dapslab/daps/pkg/segment"
	"gorm.io/gorm"
)

// MetaDB organizes an untrimmed-video dataset: one record per video, plus the
// temporal locations of the annotated action instances inside each video.
// The on-disk source of truth remains the metadata CSV folder; the sqlite DB
// is a queryable mirror of it.
type MetaDB struct {
	Log logs.Log
	DB  *gorm.DB
}

// Open or create the metadata database
func NewMetaDB(logger logs.Log, dbFilename string) (*MetaDB, error) {
	os.MkdirAll(filepath.Dir(dbFilename), 0777)
	db, err := dbh.OpenDB(logger, dbh.MakeSqliteConfig(dbFilename), Migrations(logger), 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata database %v: %w", dbFilename, err)
	}
	return &MetaDB{
		Log: logger,
		DB:  db,
	}, nil
}

// AddVideo inserts a video record. The name must be unique.
func (m *MetaDB) AddVideo(v *Video) error {
	if v.Name == "" {
		return fmt.Errorf("video needs a name")
	}
	if err := m.DB.Create(v).Error; err != nil {
		return fmt.Errorf("failed to add video '%v': %w", v.Name, err)
	}
	return nil
}

// AddInstances inserts action instances for a video that must already exist.
func (m *MetaDB) AddInstances(videoName string, instances []*Instance) error {
	video, err := m.Video(videoName)
	if err != nil {
		return err
	}
	for _, ins := range instances {
		ins.VideoID = video.ID
	}
	if len(instances) == 0 {
		return nil
	}
	if err := m.DB.Create(instances).Error; err != nil {
		return fmt.Errorf("failed to add instances of '%v': %w", videoName, err)
	}
	return nil
}

// Video fetches one video by name.
func (m *MetaDB) Video(name string) (*Video, error) {
	video := Video{}
	if err := m.DB.First(&video, "name = ?", name).Error; err != nil {
		return nil, fmt.Errorf("unknown video '%v': %w", name, err)
	}
	return &video, nil
}

// Videos lists videos, optionally restricted to a subset ("training",
// "validation", "testing"). Empty subset returns everything.
func (m *MetaDB) Videos(subset string) ([]Video, error) {
	videos := []Video{}
	q := m.DB.Order("name")
	if subset != "" {
		q = q.Where("subset = ?", subset)
	}
	if err := q.Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

// InstancesForVideo returns the action instances of a video.
func (m *MetaDB) InstancesForVideo(name string) ([]Instance, error) {
	video, err := m.Video(name)
	if err != nil {
		return nil, err
	}
	instances := []Instance{}
	if err := m.DB.Where("video_id = ?", video.ID).Order("t_init").Find(&instances).Error; err != nil {
		return nil, err
	}
	return instances, nil
}

// InstanceSegments returns the instances of a video as temporal segments.
func (m *MetaDB) InstanceSegments(name string) ([]segment.Segment, error) {
	instances, err := m.InstancesForVideo(name)
	if err != nil {
		return nil, err
	}
	segs := make([]segment.Segment, len(instances))
	for i, ins := range instances {
		segs[i] = ins.Segment()
	}
	return segs, nil
}

// CountInstances returns the total number of annotated instances.
func (m *MetaDB) CountInstances() (int64, error) {
	n := int64(0)
	err := m.DB.Model(&Instance{}).Count(&n).Error
	return n, err
}

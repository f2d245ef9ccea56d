package dummydb

import (
	"sync"

	"github.com/tmwangi/chuo/core/calendar"
	"github.com/tmwangi/chuo/core/user"
)

type (
	DB struct {
		user      *userTable
		pattern   *patternTable
		exception *exceptionTable
		holiday   *holidayTable
		event     *eventTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	patternTable struct {
		sync.RWMutex
		table map[string]*calendar.SchedulePattern
	}

	exceptionTable struct {
		sync.RWMutex
		table map[string]*calendar.ScheduleException
	}

	holidayTable struct {
		sync.RWMutex
		table map[string]*calendar.Holiday
	}

	eventTable struct {
		sync.RWMutex
		table map[string]*calendar.AcademicEvent
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:      &userTable{table: make(map[string]*user.User)},
		pattern:   &patternTable{table: make(map[string]*calendar.SchedulePattern)},
		exception: &exceptionTable{table: make(map[string]*calendar.ScheduleException)},
		holiday:   &holidayTable{table: make(map[string]*calendar.Holiday)},
		event:     &eventTable{table: make(map[string]*calendar.AcademicEvent)},
	}
	return db, nil
}
